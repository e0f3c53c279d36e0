package audit

import "unicode/utf8"

// Word count at which the content component earns full marks; below
// MinWordCount it earns nothing.
const strongContentWordCount = 500

// ComponentScores are the coarse 0/50/100 per-area marks used when
// comparing audits side by side. They are deliberately simpler than the
// full evaluation: each component answers "good, passable or failing"
// for one area.
type ComponentScores struct {
	Title     int `json:"title_score"`
	Content   int `json:"content_score"`
	Technical int `json:"technical_score"`
}

// ComponentScores grades the record's title, content and technical areas.
func (p Profile) ComponentScores(rec *Record) ComponentScores {
	t := p.Thresholds
	var scores ComponentScores

	titleLength := utf8.RuneCountInString(rec.Title)
	switch {
	case titleLength >= t.TitleMinLength && titleLength <= t.TitleMaxLength:
		scores.Title = 100
	case titleLength > 0:
		scores.Title = 50
	}

	switch {
	case rec.WordCount >= strongContentWordCount:
		scores.Content = 100
	case rec.WordCount >= t.MinWordCount:
		scores.Content = 50
	}

	if rec.HTTPS && rec.HasCanonical {
		scores.Technical = 100
	} else {
		scores.Technical = 50
	}

	return scores
}
