package audit

import "time"

// Record holds every collected SEO attribute of a single audited URL
// snapshot, plus the derived scoring fields computed on each evaluation.
// Field names in JSON match the storage schema.
type Record struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`

	// Content
	Title           string      `json:"title"`
	MetaDescription string      `json:"meta_description"`
	WordCount       int         `json:"word_count"`
	Keyword         string      `json:"keyword"`
	KeywordCount    int         `json:"keyword_count"`
	H1Text          string      `json:"h1_text"`
	H2Texts         []string    `json:"h2_texts"`
	Paragraphs      []Paragraph `json:"paragraphs"`

	// Media
	ImagesCount           int `json:"images_count"`
	MissingAltImagesCount int `json:"missing_alt_images_count"`

	// Technical
	HasCanonical                 bool     `json:"has_canonical"`
	HasSchemaMarkup              bool     `json:"has_schema_markup"`
	SchemaTypes                  []string `json:"schema_types"`
	RobotsTxtPresent             bool     `json:"robots_txt_present"`
	SitemapPresent               bool     `json:"sitemap_present"`
	RenderBlockingResourcesCount int      `json:"render_blocking_resources_count"`
	LazyLoadingEnabled           bool     `json:"lazy_loading_enabled"`
	HTTPS                        bool     `json:"https"`

	// Core Web Vitals. A zero metric means "not measured" and is never
	// penalized.
	LargestContentfulPaint float64 `json:"largest_contentful_paint"`
	FirstInputDelay        float64 `json:"first_input_delay"`
	CumulativeLayoutShift  float64 `json:"cumulative_layout_shift"`
	MobileFriendly         bool    `json:"mobile_friendly"`

	// E-E-A-T
	AuthorCredentials    bool       `json:"author_credentials"`
	ContactInfoPresent   bool       `json:"contact_info_present"`
	LastUpdated          *time.Time `json:"last_updated,omitempty"`
	DuplicateContentFlag bool       `json:"duplicate_content_flag"`
	ThinContentFlag      bool       `json:"thin_content_flag"`

	// Derived fields, recomputed on every evaluation. Never set by hand.
	SEOHealthPercentage int      `json:"seo_health_percentage"`
	Recommendations     []string `json:"recommendations"`
	HasCriticalErrors   bool     `json:"has_critical_errors"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Paragraph is one body paragraph with its precomputed length in
// characters (runes, not bytes).
type Paragraph struct {
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// Report is the output of one evaluation pass.
type Report struct {
	HealthPercentage  int      `json:"seo_health_percentage"`
	Recommendations   []string `json:"recommendations"`
	HasCriticalErrors bool     `json:"has_critical_errors"`
}

// NewRecord builds a record for the given URL with every optional field
// resolved to its default: empty strings, zero counts, empty (non-nil)
// lists, false flags, unmeasured vitals.
func NewRecord(url string) *Record {
	return &Record{
		URL:             url,
		H2Texts:         []string{},
		Paragraphs:      []Paragraph{},
		SchemaTypes:     []string{},
		Recommendations: []string{},
	}
}

// KeywordDensity returns the keyword density as a percentage of total
// words. A missing keyword or empty page yields zero rather than an error.
func (r *Record) KeywordDensity() float64 {
	if r.Keyword == "" || r.WordCount == 0 {
		return 0
	}
	return float64(r.KeywordCount) / float64(r.WordCount) * 100
}

// Grade maps the health percentage to the dashboard letter grade.
func (r *Record) Grade() string {
	switch {
	case r.SEOHealthPercentage >= 90:
		return "A"
	case r.SEOHealthPercentage >= 70:
		return "B"
	case r.SEOHealthPercentage >= 50:
		return "C"
	case r.SEOHealthPercentage >= 30:
		return "D"
	default:
		return "F"
	}
}
