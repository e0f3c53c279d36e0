package audit

import (
	"strings"
	"testing"
)

func TestComponentScores(t *testing.T) {
	profile := DefaultProfile()

	cases := []struct {
		name          string
		title         string
		wordCount     int
		https         bool
		hasCanonical  bool
		wantTitle     int
		wantContent   int
		wantTechnical int
	}{
		{"all strong", strings.Repeat("t", 55), 600, true, true, 100, 100, 100},
		{"title off-range", strings.Repeat("t", 20), 600, true, true, 50, 100, 100},
		{"title missing", "", 600, true, true, 0, 100, 100},
		{"content passable", strings.Repeat("t", 55), 350, true, true, 100, 50, 100},
		{"content failing", strings.Repeat("t", 55), 100, true, true, 100, 0, 100},
		{"no https", strings.Repeat("t", 55), 600, false, true, 100, 100, 50},
		{"no canonical", strings.Repeat("t", 55), 600, true, false, 100, 100, 50},
		{"multi-byte title in range", strings.Repeat("ü", 55), 600, true, true, 100, 100, 100},
	}

	for _, tc := range cases {
		rec := NewRecord("https://example.com")
		rec.Title = tc.title
		rec.WordCount = tc.wordCount
		rec.HTTPS = tc.https
		rec.HasCanonical = tc.hasCanonical

		scores := profile.ComponentScores(rec)
		if scores.Title != tc.wantTitle {
			t.Errorf("%s: expected title score %d, got %d", tc.name, tc.wantTitle, scores.Title)
		}
		if scores.Content != tc.wantContent {
			t.Errorf("%s: expected content score %d, got %d", tc.name, tc.wantContent, scores.Content)
		}
		if scores.Technical != tc.wantTechnical {
			t.Errorf("%s: expected technical score %d, got %d", tc.name, tc.wantTechnical, scores.Technical)
		}
	}
}
