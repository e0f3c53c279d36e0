package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
<title>Best Coffee Shops in Berlin: A Complete Local Guide</title>
<meta name="description" content="An in-depth local guide to the best specialty coffee shops in Berlin, covering roasters, brew bars and neighborhood cafes worth your time.">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="author" content="Jamie Doe">
<meta property="article:modified_time" content="2025-05-01T10:00:00Z">
<link rel="canonical" href="https://example.com/coffee-berlin">
<link rel="stylesheet" href="/main.css">
<link rel="stylesheet" href="/print.css" media="print">
<script src="/blocking.js"></script>
<script src="/deferred.js" defer></script>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Article", "headline": "Coffee in Berlin"}
</script>
</head>
<body>
<h1>Best Coffee Shops in Berlin</h1>
<h2>Specialty Roasters</h2>
<h2>Neighborhood Cafes</h2>
<p>Berlin has one of the most vibrant specialty coffee scenes in Europe, with new roasters opening every year across every district of the city.</p>
<p>Our favorite coffee spots combine excellent beans with relaxed atmospheres.</p>
<img src="/a.jpg" alt="Espresso being poured">
<img src="/b.jpg" loading="lazy">
<div itemscope itemtype="https://schema.org/LocalBusiness"><span itemprop="name">Roasterei</span></div>
<a href="mailto:hello@example.com">Contact us</a>
</body>
</html>`

func newTestServer(t *testing.T, robotsStatus, sitemapStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPage))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(robotsStatus)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(sitemapStatus)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCollect(t *testing.T) {
	server := newTestServer(t, http.StatusOK, http.StatusNotFound)

	c := New("SEOAudit-Test/1.0")
	rec, err := c.Collect(context.Background(), server.URL, "coffee")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if rec.Title != "Best Coffee Shops in Berlin: A Complete Local Guide" {
		t.Errorf("Unexpected title: %q", rec.Title)
	}
	if rec.MetaDescription == "" {
		t.Error("Expected a meta description")
	}
	if rec.H1Text != "Best Coffee Shops in Berlin" {
		t.Errorf("Unexpected H1: %q", rec.H1Text)
	}
	if len(rec.H2Texts) != 2 {
		t.Errorf("Expected 2 H2 texts, got %v", rec.H2Texts)
	}
	if len(rec.Paragraphs) != 2 {
		t.Errorf("Expected 2 paragraphs, got %d", len(rec.Paragraphs))
	}
	for _, paragraph := range rec.Paragraphs {
		if paragraph.Length != len(paragraph.Text) {
			t.Errorf("Paragraph length %d does not match text of %d characters",
				paragraph.Length, len(paragraph.Text))
		}
	}
	if rec.WordCount == 0 {
		t.Error("Expected a non-zero word count")
	}
	if rec.KeywordCount == 0 {
		t.Error("Expected keyword occurrences for 'coffee'")
	}

	if rec.ImagesCount != 2 {
		t.Errorf("Expected 2 images, got %d", rec.ImagesCount)
	}
	if rec.MissingAltImagesCount != 1 {
		t.Errorf("Expected 1 image missing alt text, got %d", rec.MissingAltImagesCount)
	}
	if !rec.LazyLoadingEnabled {
		t.Error("Expected lazy loading to be detected")
	}

	if !rec.HasCanonical {
		t.Error("Expected canonical link to be detected")
	}
	if !rec.MobileFriendly {
		t.Error("Expected viewport meta to mark the page mobile friendly")
	}
	// One non-print stylesheet plus one script without defer/async.
	if rec.RenderBlockingResourcesCount != 2 {
		t.Errorf("Expected 2 render-blocking resources, got %d", rec.RenderBlockingResourcesCount)
	}
	if rec.HTTPS {
		t.Error("Plain-HTTP test server should not be marked HTTPS")
	}

	if !rec.HasSchemaMarkup {
		t.Error("Expected schema markup to be detected")
	}
	wantTypes := map[string]bool{"Article": false, "LocalBusiness": false}
	for _, schemaType := range rec.SchemaTypes {
		if _, ok := wantTypes[schemaType]; ok {
			wantTypes[schemaType] = true
		}
	}
	for schemaType, found := range wantTypes {
		if !found {
			t.Errorf("Expected schema type %s in %v", schemaType, rec.SchemaTypes)
		}
	}

	if !rec.AuthorCredentials {
		t.Error("Expected author meta to set author_credentials")
	}
	if !rec.ContactInfoPresent {
		t.Error("Expected mailto link to set contact_info_present")
	}
	if rec.LastUpdated == nil {
		t.Fatal("Expected last_updated from article:modified_time")
	}
	if rec.LastUpdated.Year() != 2025 || rec.LastUpdated.Month() != 5 {
		t.Errorf("Unexpected last_updated: %v", rec.LastUpdated)
	}

	if !rec.RobotsTxtPresent {
		t.Error("Expected robots.txt to be detected")
	}
	if rec.SitemapPresent {
		t.Error("Did not expect sitemap.xml to be detected")
	}

	// Vitals are not measurable from static HTML and stay at defaults.
	if rec.LargestContentfulPaint != 0 || rec.FirstInputDelay != 0 || rec.CumulativeLayoutShift != 0 {
		t.Error("Vitals should stay at zero defaults")
	}
}

func TestCollectErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := New("SEOAudit-Test/1.0")
	if _, err := c.Collect(context.Background(), server.URL, ""); err == nil {
		t.Error("Expected an error for a 404 response")
	}
}

func TestCollectParagraphLengthInCharacters(t *testing.T) {
	// 85 Cyrillic characters are 170 bytes; the stored length must be 85.
	paragraph := strings.Repeat("б", 85)
	page := "<html><head><title>Тест</title></head><body><h1>Заголовок</h1><p>" +
		paragraph + "</p></body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	defer server.Close()

	c := New("SEOAudit-Test/1.0")
	rec, err := c.Collect(context.Background(), server.URL, "")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(rec.Paragraphs) != 1 {
		t.Fatalf("Expected 1 paragraph, got %d", len(rec.Paragraphs))
	}
	if rec.Paragraphs[0].Length != 85 {
		t.Errorf("Expected paragraph length 85 characters, got %d", rec.Paragraphs[0].Length)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"https://Example.COM/Path/", "https://example.com/Path", false},
		{"http://example.com", "http://example.com", false},
		{" example.com/page ", "https://example.com/page", false},
		{"", "", true},
		{"https://", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeURL(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeURL(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
