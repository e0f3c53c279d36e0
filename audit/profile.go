package audit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Group weights used by Evaluate. They are fixed: together they sum to 100
// and define how much each check group can deduct from a perfect score.
const (
	WeightContent   = 25
	WeightMeta      = 20
	WeightTechnical = 20
	WeightMedia     = 10
	WeightVitals    = 15
	WeightEEAT      = 10
)

// Thresholds are the numeric cutoffs the checks compare against. All of
// them can be overridden from a profile file; the weights cannot.
type Thresholds struct {
	MinWordCount       int     `yaml:"min_word_count"`
	MinKeywordDensity  float64 `yaml:"min_keyword_density"`
	MaxKeywordDensity  float64 `yaml:"max_keyword_density"`
	MaxParagraphLength int     `yaml:"max_paragraph_length"`

	TitleMinLength    int `yaml:"title_min_length"`
	TitleMaxLength    int `yaml:"title_max_length"`
	MetaDescMinLength int `yaml:"meta_description_min_length"`
	MetaDescMaxLength int `yaml:"meta_description_max_length"`

	LCPGoodMs float64 `yaml:"lcp_good_ms"`
	LCPPoorMs float64 `yaml:"lcp_poor_ms"`
	FIDGoodMs float64 `yaml:"fid_good_ms"`
	CLSGood   float64 `yaml:"cls_good"`

	// Stale content cutoff in days since last update.
	StaleAfterDays int `yaml:"stale_after_days"`

	// A page is image-heavy when it has at least MinImagesForRatio images
	// and fewer than WordsPerImage words per image.
	WordsPerImage     int `yaml:"words_per_image"`
	MinImagesForRatio int `yaml:"min_images_for_ratio"`
}

// Profile bundles the thresholds needed for one evaluation pass.
type Profile struct {
	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultProfile returns the documented default thresholds: title 50-60
// characters, meta description 120-160, keyword density 1.0-2.5%, paragraph
// cap 160 characters, 300 word minimum, Core Web Vitals cutoffs per the
// public "good" thresholds (LCP 2500ms, FID 100ms, CLS 0.1) with 4000ms as
// the poor LCP line, and a 365 day staleness window.
func DefaultProfile() Profile {
	return Profile{
		Thresholds: Thresholds{
			MinWordCount:       300,
			MinKeywordDensity:  1.0,
			MaxKeywordDensity:  2.5,
			MaxParagraphLength: 160,
			TitleMinLength:     50,
			TitleMaxLength:     60,
			MetaDescMinLength:  120,
			MetaDescMaxLength:  160,
			LCPGoodMs:          2500,
			LCPPoorMs:          4000,
			FIDGoodMs:          100,
			CLSGood:            0.1,
			StaleAfterDays:     365,
			WordsPerImage:      75,
			MinImagesForRatio:  4,
		},
	}
}

// LoadProfile reads threshold overrides from a YAML file on top of the
// defaults. An empty path returns the defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read profile file: %w", err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse profile file: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return profile, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return profile, nil
}

// Validate rejects threshold combinations that would make checks
// meaningless.
func (p Profile) Validate() error {
	t := p.Thresholds

	if t.MinWordCount <= 0 {
		return fmt.Errorf("min_word_count must be positive, got %d", t.MinWordCount)
	}
	if t.MinKeywordDensity < 0 || t.MaxKeywordDensity <= t.MinKeywordDensity {
		return fmt.Errorf("keyword density range %.2f-%.2f is invalid", t.MinKeywordDensity, t.MaxKeywordDensity)
	}
	if t.MaxParagraphLength <= 0 {
		return fmt.Errorf("max_paragraph_length must be positive, got %d", t.MaxParagraphLength)
	}
	if t.TitleMinLength <= 0 || t.TitleMaxLength < t.TitleMinLength {
		return fmt.Errorf("title length range %d-%d is invalid", t.TitleMinLength, t.TitleMaxLength)
	}
	if t.MetaDescMinLength <= 0 || t.MetaDescMaxLength < t.MetaDescMinLength {
		return fmt.Errorf("meta description length range %d-%d is invalid", t.MetaDescMinLength, t.MetaDescMaxLength)
	}
	if t.LCPGoodMs <= 0 || t.LCPPoorMs <= t.LCPGoodMs {
		return fmt.Errorf("LCP cutoffs %.0f/%.0f are invalid", t.LCPGoodMs, t.LCPPoorMs)
	}
	if t.FIDGoodMs <= 0 {
		return fmt.Errorf("fid_good_ms must be positive, got %.0f", t.FIDGoodMs)
	}
	if t.CLSGood <= 0 {
		return fmt.Errorf("cls_good must be positive, got %.2f", t.CLSGood)
	}
	if t.StaleAfterDays <= 0 {
		return fmt.Errorf("stale_after_days must be positive, got %d", t.StaleAfterDays)
	}
	if t.WordsPerImage <= 0 || t.MinImagesForRatio <= 0 {
		return fmt.Errorf("image ratio thresholds %d/%d are invalid", t.WordsPerImage, t.MinImagesForRatio)
	}

	return nil
}
