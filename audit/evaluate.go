package audit

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Check groups in evaluation order. The order matters: it is the final
// tie-breaker when recommendations are sorted.
const (
	groupContent = iota
	groupMeta
	groupTechnical
	groupMedia
	groupVitals
	groupEEAT
)

// Per-condition deductions. Within each group they sum to at most the
// group weight (density penalties and the two LCP tiers are mutually
// exclusive).
const (
	deductThinContent   = 10
	deductLowDensity    = 8
	deductHighDensity   = 8
	deductLongParagraph = 2
	maxParagraphDeduct  = 7

	deductMissingTitle    = 6
	deductTitleLength     = 3
	deductMissingMetaDesc = 4
	deductMetaDescLength  = 2
	deductMissingH1       = 6
	deductH1DuplicatesH2  = 2
	deductDuplicateH2     = 2

	deductNoHTTPS             = 6
	deductMissingCanonical    = 4
	deductNoSchemaMarkup      = 2
	deductUnrecognizedSchema  = 3
	deductMissingRobotsTxt    = 2
	deductMissingSitemap      = 2
	deductRenderBlockingEach  = 1
	maxRenderBlockingDeduct   = 2
	deductNoLazyLoading       = 1

	maxMissingAltDeduct = 8
	deductImageHeavy    = 2

	deductLCPPoor        = 5
	deductLCPSlow        = 3
	deductFIDSlow        = 3
	deductCLSHigh        = 3
	deductNotMobile      = 4

	deductNoAuthorCredentials = 2
	deductNoContactInfo       = 2
	deductDuplicateContent    = 2
	deductThinContentFlag     = 2
	deductStaleContent        = 2
)

// recognizedSchemaTypes are the structured data types that count as a
// valid schema implementation.
var recognizedSchemaTypes = map[string]bool{
	"Article":        true,
	"BlogPosting":    true,
	"BreadcrumbList": true,
	"FAQPage":        true,
	"LocalBusiness":  true,
	"NewsArticle":    true,
	"Organization":   true,
	"Person":         true,
	"Product":        true,
	"Review":         true,
	"WebPage":        true,
	"WebSite":        true,
}

// issue is one deduction-producing finding. Every issue carries exactly
// one recommendation message.
type issue struct {
	group     int
	deduction int
	critical  bool
	message   string
}

// Evaluate runs the full scoring pass over a record and returns the
// derived fields. It is a pure function of the record, the profile
// thresholds and the supplied clock value: same inputs, same output, no
// side effects. Missing optional fields are treated as their defaults and
// never cause a failure.
//
// The score starts at 100 and each check group deducts up to its weight
// (Content 25, Meta 20, Technical 20, Media 10, Vitals 15, E-E-A-T 10),
// floored at 0. Recommendations are ordered critical-first, then by
// descending deduction, then by group order.
func (p Profile) Evaluate(rec *Record, now time.Time) Report {
	issues := make([]issue, 0, 16)
	issues = append(issues, p.checkContent(rec)...)
	issues = append(issues, p.checkMeta(rec)...)
	issues = append(issues, p.checkTechnical(rec)...)
	issues = append(issues, p.checkMedia(rec)...)
	issues = append(issues, p.checkVitals(rec)...)
	issues = append(issues, p.checkEEAT(rec, now)...)

	total := 0
	critical := false
	for _, is := range issues {
		total += is.deduction
		if is.critical {
			critical = true
		}
	}

	score := 100 - total
	if score < 0 {
		score = 0
	}

	// Critical issues first, then the biggest deductions. The stable sort
	// preserves group order and emission order for equal entries.
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].critical != issues[j].critical {
			return issues[i].critical
		}
		return issues[i].deduction > issues[j].deduction
	})

	recommendations := make([]string, 0, len(issues))
	for _, is := range issues {
		recommendations = append(recommendations, is.message)
	}

	return Report{
		HealthPercentage:  score,
		Recommendations:   recommendations,
		HasCriticalErrors: critical,
	}
}

// Refresh evaluates the record and writes the derived fields back into it.
// Callers persist the record only after calling this, keeping the derived
// fields consistent with the inputs that produced them.
func (p Profile) Refresh(rec *Record, now time.Time) {
	report := p.Evaluate(rec, now)
	rec.SEOHealthPercentage = report.HealthPercentage
	rec.Recommendations = report.Recommendations
	rec.HasCriticalErrors = report.HasCriticalErrors
}

func (p Profile) checkContent(rec *Record) []issue {
	t := p.Thresholds
	var issues []issue

	if rec.WordCount < t.MinWordCount {
		issues = append(issues, issue{
			group:     groupContent,
			deduction: deductThinContent,
			message: fmt.Sprintf("Content is thin (%d words). Aim for at least %d words of substantive content",
				rec.WordCount, t.MinWordCount),
		})
	}

	if rec.Keyword != "" && rec.WordCount > 0 {
		density := rec.KeywordDensity()
		if density < t.MinKeywordDensity {
			issues = append(issues, issue{
				group:     groupContent,
				deduction: deductLowDensity,
				message: fmt.Sprintf("Keyword density for %q is too low (%.1f%%). Aim for %.1f-%.1f%%",
					rec.Keyword, density, t.MinKeywordDensity, t.MaxKeywordDensity),
			})
		} else if density > t.MaxKeywordDensity {
			issues = append(issues, issue{
				group:     groupContent,
				deduction: deductHighDensity,
				message: fmt.Sprintf("Keyword density for %q is too high (%.1f%%). Risk of keyword stuffing; aim for %.1f-%.1f%%",
					rec.Keyword, density, t.MinKeywordDensity, t.MaxKeywordDensity),
			})
		}
	}

	longParagraphs := 0
	for _, paragraph := range rec.Paragraphs {
		if paragraph.Length > t.MaxParagraphLength {
			longParagraphs++
		}
	}
	if longParagraphs > 0 {
		deduction := longParagraphs * deductLongParagraph
		if deduction > maxParagraphDeduct {
			deduction = maxParagraphDeduct
		}
		issues = append(issues, issue{
			group:     groupContent,
			deduction: deduction,
			message: fmt.Sprintf("%d paragraph(s) exceed %d characters. Shorter paragraphs improve readability",
				longParagraphs, t.MaxParagraphLength),
		})
	}

	return issues
}

func (p Profile) checkMeta(rec *Record) []issue {
	t := p.Thresholds
	var issues []issue

	// Length thresholds are in characters, not bytes.
	titleLength := utf8.RuneCountInString(rec.Title)
	if titleLength == 0 {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductMissingTitle,
			message:   "Add a title tag to the page",
		})
	} else if titleLength < t.TitleMinLength || titleLength > t.TitleMaxLength {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductTitleLength,
			message: fmt.Sprintf("Title is %d characters; the ideal range is %d-%d",
				titleLength, t.TitleMinLength, t.TitleMaxLength),
		})
	}

	descLength := utf8.RuneCountInString(rec.MetaDescription)
	if descLength == 0 {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductMissingMetaDesc,
			message:   "Add a meta description",
		})
	} else if descLength < t.MetaDescMinLength || descLength > t.MetaDescMaxLength {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductMetaDescLength,
			message: fmt.Sprintf("Meta description is %d characters; the ideal range is %d-%d",
				descLength, t.MetaDescMinLength, t.MetaDescMaxLength),
		})
	}

	if strings.TrimSpace(rec.H1Text) == "" {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductMissingH1,
			critical:  true,
			message:   "Critical: the page has no H1 heading",
		})
	} else {
		for _, h2 := range rec.H2Texts {
			if strings.EqualFold(strings.TrimSpace(h2), strings.TrimSpace(rec.H1Text)) {
				issues = append(issues, issue{
					group:     groupMeta,
					deduction: deductH1DuplicatesH2,
					message:   fmt.Sprintf("H1 and an H2 have identical text: %q", rec.H1Text),
				})
				break
			}
		}
	}

	if duplicate := firstDuplicateHeading(rec.H2Texts); duplicate != "" {
		issues = append(issues, issue{
			group:     groupMeta,
			deduction: deductDuplicateH2,
			message:   fmt.Sprintf("Duplicate H2 heading %q. Each H2 should be unique", duplicate),
		})
	}

	return issues
}

func (p Profile) checkTechnical(rec *Record) []issue {
	var issues []issue

	if !rec.HTTPS {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductNoHTTPS,
			critical:  true,
			message:   "Critical: enable HTTPS. Pages served over plain HTTP are penalized and marked insecure",
		})
	}

	if !rec.HasCanonical {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductMissingCanonical,
			message:   "Add a canonical link tag to declare the preferred URL",
		})
	}

	if !rec.HasSchemaMarkup {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductNoSchemaMarkup,
			message:   "No schema markup detected. Add structured data to enable rich results",
		})
	} else if !hasRecognizedSchema(rec.SchemaTypes) {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductUnrecognizedSchema,
			message:   "Schema markup found but no recognized type. Use a standard schema.org type such as Article or Product",
		})
	}

	if !rec.RobotsTxtPresent {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductMissingRobotsTxt,
			message:   "robots.txt was not found. Add one to control crawler access",
		})
	}

	if !rec.SitemapPresent {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductMissingSitemap,
			message:   "sitemap.xml was not found. Add one to help search engines discover pages",
		})
	}

	if rec.RenderBlockingResourcesCount > 0 {
		deduction := rec.RenderBlockingResourcesCount * deductRenderBlockingEach
		if deduction > maxRenderBlockingDeduct {
			deduction = maxRenderBlockingDeduct
		}
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deduction,
			message: fmt.Sprintf("%d render-blocking resource(s) in the document head. Defer scripts and inline critical CSS",
				rec.RenderBlockingResourcesCount),
		})
	}

	if rec.ImagesCount > 0 && !rec.LazyLoadingEnabled {
		issues = append(issues, issue{
			group:     groupTechnical,
			deduction: deductNoLazyLoading,
			message:   "Images are not lazy loaded. Add loading=\"lazy\" to below-the-fold images",
		})
	}

	return issues
}

func (p Profile) checkMedia(rec *Record) []issue {
	t := p.Thresholds
	var issues []issue

	// Guard against inconsistent upstream counts.
	missing := rec.MissingAltImagesCount
	if missing > rec.ImagesCount {
		missing = rec.ImagesCount
	}

	if rec.ImagesCount > 0 && missing > 0 {
		fraction := float64(missing) / float64(rec.ImagesCount)
		deduction := int(math.Round(fraction * maxMissingAltDeduct))
		if deduction < 1 {
			deduction = 1
		}
		issues = append(issues, issue{
			group:     groupMedia,
			deduction: deduction,
			message: fmt.Sprintf("%d of %d images are missing alt text. Add descriptive alt attributes",
				missing, rec.ImagesCount),
		})
	}

	if rec.ImagesCount >= t.MinImagesForRatio && rec.WordCount > 0 &&
		rec.WordCount < rec.ImagesCount*t.WordsPerImage {
		issues = append(issues, issue{
			group:     groupMedia,
			deduction: deductImageHeavy,
			message: fmt.Sprintf("Page is image-heavy (%d images for %d words). Compress images and balance media with copy",
				rec.ImagesCount, rec.WordCount),
		})
	}

	return issues
}

func (p Profile) checkVitals(rec *Record) []issue {
	t := p.Thresholds
	var issues []issue

	if rec.LargestContentfulPaint > t.LCPPoorMs {
		issues = append(issues, issue{
			group:     groupVitals,
			deduction: deductLCPPoor,
			critical:  true,
			message: fmt.Sprintf("Critical: Largest Contentful Paint is %.0fms (poor, above %.0fms). Optimize the largest above-the-fold element",
				rec.LargestContentfulPaint, t.LCPPoorMs),
		})
	} else if rec.LargestContentfulPaint > t.LCPGoodMs {
		issues = append(issues, issue{
			group:     groupVitals,
			deduction: deductLCPSlow,
			message: fmt.Sprintf("Largest Contentful Paint is %.0fms; the good threshold is %.0fms",
				rec.LargestContentfulPaint, t.LCPGoodMs),
		})
	}

	if rec.FirstInputDelay > t.FIDGoodMs {
		issues = append(issues, issue{
			group:     groupVitals,
			deduction: deductFIDSlow,
			message: fmt.Sprintf("First Input Delay is %.0fms; the good threshold is %.0fms. Reduce main-thread work",
				rec.FirstInputDelay, t.FIDGoodMs),
		})
	}

	if rec.CumulativeLayoutShift > t.CLSGood {
		issues = append(issues, issue{
			group:     groupVitals,
			deduction: deductCLSHigh,
			message: fmt.Sprintf("Cumulative Layout Shift is %.2f; the good threshold is %.2f. Reserve space for late-loading elements",
				rec.CumulativeLayoutShift, t.CLSGood),
		})
	}

	if !rec.MobileFriendly {
		issues = append(issues, issue{
			group:     groupVitals,
			deduction: deductNotMobile,
			critical:  true,
			message:   "Critical: the page is not mobile-friendly. Add a responsive viewport meta tag",
		})
	}

	return issues
}

func (p Profile) checkEEAT(rec *Record, now time.Time) []issue {
	t := p.Thresholds
	var issues []issue

	if !rec.AuthorCredentials {
		issues = append(issues, issue{
			group:     groupEEAT,
			deduction: deductNoAuthorCredentials,
			message:   "No author credentials found. Add an author byline with credentials",
		})
	}

	if !rec.ContactInfoPresent {
		issues = append(issues, issue{
			group:     groupEEAT,
			deduction: deductNoContactInfo,
			message:   "No contact information found. Publish contact details to build trust",
		})
	}

	if rec.DuplicateContentFlag {
		issues = append(issues, issue{
			group:     groupEEAT,
			deduction: deductDuplicateContent,
			critical:  true,
			message:   "Critical: duplicate content detected. Rewrite or canonicalize the duplicated sections",
		})
	}

	if rec.ThinContentFlag {
		issues = append(issues, issue{
			group:     groupEEAT,
			deduction: deductThinContentFlag,
			critical:  true,
			message:   "Critical: the page is flagged as thin content. Expand it with original, useful material",
		})
	}

	if rec.LastUpdated != nil {
		age := now.Sub(*rec.LastUpdated)
		if age > time.Duration(t.StaleAfterDays)*24*time.Hour {
			issues = append(issues, issue{
				group:     groupEEAT,
				deduction: deductStaleContent,
				message: fmt.Sprintf("Content is outdated (last updated %d days ago). Refresh it and update the modified date",
					int(age.Hours()/24)),
			})
		}
	}

	return issues
}

func hasRecognizedSchema(types []string) bool {
	for _, schemaType := range types {
		if recognizedSchemaTypes[schemaType] {
			return true
		}
	}
	return false
}

// firstDuplicateHeading returns the first heading that repeats
// (case-insensitive), or "" when all headings are unique.
func firstDuplicateHeading(headings []string) string {
	seen := make(map[string]bool, len(headings))
	for _, heading := range headings {
		key := strings.ToLower(strings.TrimSpace(heading))
		if key == "" {
			continue
		}
		if seen[key] {
			return heading
		}
		seen[key] = true
	}
	return ""
}
