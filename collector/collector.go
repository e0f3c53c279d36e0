// Package collector fetches a webpage and populates the raw audit record
// fields. It performs no scoring: the record it returns is handed to the
// audit engine before anything is persisted.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/seo-audit/backend/audit"
)

const maxBodySize = 10 << 20 // 10MB, enough for any real page

// Collector fetches and parses webpages.
type Collector struct {
	client    *http.Client
	userAgent string
}

// New creates a Collector with a pooled HTTP transport and keep-alive
// connections.
func New(userAgent string) *Collector {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Collector{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		userAgent: userAgent,
	}
}

// NormalizeURL prefixes a missing scheme with https, lowercases the host
// and strips a trailing slash. It rejects URLs without a hostname.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	return strings.TrimSuffix(parsed.String(), "/"), nil
}

// Collect fetches the URL and returns a record with every field the page
// itself can answer. Core Web Vitals need field data and stay at their
// zero defaults.
func (c *Collector) Collect(ctx context.Context, rawURL, keyword string) (*audit.Record, error) {
	pageURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	finalURL := resp.Request.URL

	rec := audit.NewRecord(pageURL)
	rec.Keyword = strings.TrimSpace(keyword)
	rec.HTTPS = finalURL.Scheme == "https"

	c.collectBasics(rec, doc)
	c.collectContent(rec, doc, buf.Bytes(), finalURL)
	c.collectImages(rec, doc)
	c.collectTechnical(rec, doc)
	c.collectSchema(rec, doc)
	c.collectSignals(rec, doc, resp)
	c.probeSiteFiles(ctx, rec, finalURL)

	return rec, nil
}

func (c *Collector) collectBasics(rec *audit.Record, doc *goquery.Document) {
	rec.Title = strings.TrimSpace(doc.Find("title").First().Text())
	rec.MetaDescription, _ = doc.Find("meta[name='description']").Attr("content")
	rec.MetaDescription = strings.TrimSpace(rec.MetaDescription)

	rec.H1Text = strings.TrimSpace(doc.Find("h1").First().Text())
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			rec.H2Texts = append(rec.H2Texts, text)
		}
	})
}

func (c *Collector) collectContent(rec *audit.Record, doc *goquery.Document, page []byte, pageURL *url.URL) {
	// Prefer the readability-extracted main content for word and keyword
	// counts so navigation and boilerplate do not inflate them. Fall back
	// to the full body text when extraction fails.
	text := ""
	if article, err := readability.FromReader(bytes.NewReader(page), pageURL); err == nil {
		text = article.TextContent
	}
	if strings.TrimSpace(text) == "" {
		body := doc.Clone()
		body.Find("script, style, noscript").Remove()
		text = body.Find("body").Text()
	}

	rec.WordCount = len(strings.Fields(text))
	if rec.Keyword != "" {
		rec.KeywordCount = strings.Count(strings.ToLower(text), strings.ToLower(rec.Keyword))
	}

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		paragraph := strings.TrimSpace(s.Text())
		if paragraph == "" {
			return
		}
		rec.Paragraphs = append(rec.Paragraphs, audit.Paragraph{
			Text:   paragraph,
			Length: utf8.RuneCountInString(paragraph),
		})
	})
}

func (c *Collector) collectImages(rec *audit.Record, doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		rec.ImagesCount++
		alt, exists := s.Attr("alt")
		if !exists || strings.TrimSpace(alt) == "" {
			rec.MissingAltImagesCount++
		}
		if loading, _ := s.Attr("loading"); strings.EqualFold(loading, "lazy") {
			rec.LazyLoadingEnabled = true
		}
	})
}

func (c *Collector) collectTechnical(rec *audit.Record, doc *goquery.Document) {
	rec.HasCanonical = doc.Find("link[rel='canonical']").Length() > 0

	viewport, _ := doc.Find("meta[name='viewport']").Attr("content")
	rec.MobileFriendly = strings.Contains(strings.ToLower(viewport), "width=device-width")

	// Stylesheets and synchronous scripts in the head block first paint.
	doc.Find("head link[rel='stylesheet']").Each(func(_ int, s *goquery.Selection) {
		if media, _ := s.Attr("media"); strings.EqualFold(media, "print") {
			return
		}
		rec.RenderBlockingResourcesCount++
	})
	doc.Find("head script[src]").Each(func(_ int, s *goquery.Selection) {
		if _, async := s.Attr("async"); async {
			return
		}
		if _, deferred := s.Attr("defer"); deferred {
			return
		}
		rec.RenderBlockingResourcesCount++
	})
}

func (c *Collector) collectSchema(rec *audit.Record, doc *goquery.Document) {
	seen := make(map[string]bool)

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		for _, schemaType := range parseJSONLDTypes(s.Text()) {
			seen[schemaType] = true
		}
	})

	doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		itemtype, _ := s.Attr("itemtype")
		if strings.Contains(itemtype, "schema.org") {
			parts := strings.Split(strings.TrimSuffix(itemtype, "/"), "/")
			if name := parts[len(parts)-1]; name != "" {
				seen[name] = true
			}
		}
	})

	for schemaType := range seen {
		rec.SchemaTypes = append(rec.SchemaTypes, schemaType)
	}
	sort.Strings(rec.SchemaTypes)
	rec.HasSchemaMarkup = len(rec.SchemaTypes) > 0
}

// collectSignals fills the trust and freshness fields that static HTML can
// answer: author markup, contact links and the last-modified signal.
func (c *Collector) collectSignals(rec *audit.Record, doc *goquery.Document, resp *http.Response) {
	author, _ := doc.Find("meta[name='author']").Attr("content")
	rec.AuthorCredentials = strings.TrimSpace(author) != "" ||
		doc.Find("[rel='author'], [itemprop='author']").Length() > 0

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.ToLower(href)
		if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.Contains(href, "contact") {
			rec.ContactInfoPresent = true
			return false
		}
		return true
	})

	if modified, _ := doc.Find("meta[property='article:modified_time']").Attr("content"); modified != "" {
		if parsed, err := time.Parse(time.RFC3339, modified); err == nil {
			rec.LastUpdated = &parsed
		}
	}
	if rec.LastUpdated == nil {
		if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
			if parsed, err := http.ParseTime(lastModified); err == nil {
				rec.LastUpdated = &parsed
			}
		}
	}
}

// probeSiteFiles checks for robots.txt and sitemap.xml at the site root.
// Probe failures leave the flags false rather than failing the audit.
func (c *Collector) probeSiteFiles(ctx context.Context, rec *audit.Record, pageURL *url.URL) {
	base := pageURL.Scheme + "://" + pageURL.Host
	rec.RobotsTxtPresent = c.probe(ctx, base+"/robots.txt")
	rec.SitemapPresent = c.probe(ctx, base+"/sitemap.xml")
}

func (c *Collector) probe(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// parseJSONLDTypes extracts @type values from a JSON-LD block. Both a
// single object and an array of objects are accepted; malformed JSON is
// skipped.
func parseJSONLDTypes(raw string) []string {
	var types []string

	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}

	var walk func(node interface{})
	walk = func(node interface{}) {
		switch value := node.(type) {
		case map[string]interface{}:
			switch typed := value["@type"].(type) {
			case string:
				types = append(types, typed)
			case []interface{}:
				for _, entry := range typed {
					if name, ok := entry.(string); ok {
						types = append(types, name)
					}
				}
			}
			if graph, ok := value["@graph"].([]interface{}); ok {
				walk(graph)
			}
		case []interface{}:
			for _, entry := range value {
				walk(entry)
			}
		}
	}
	walk(decoded)

	return types
}
