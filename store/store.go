// Package store persists audit records in SQLite. It implements the
// storage side of the validate-evaluate-persist contract: records arrive
// already evaluated and Save never computes derived fields itself.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/seo-audit/backend/audit"
)

// ErrNotFound is returned when no audit matches the lookup.
var ErrNotFound = errors.New("audit not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// ListOptions filters and pages List results.
type ListOptions struct {
	// Search matches against URL, title and keyword.
	Search string
	// Score selects a band: excellent (>=90), good (70-89),
	// average (50-69) or poor (<50). Empty means all.
	Score  string
	Limit  int
	Offset int
}

// DashboardStats are the aggregate numbers shown on the dashboard.
type DashboardStats struct {
	TotalAudits    int     `json:"total_audits"`
	AverageScore   float64 `json:"average_score"`
	CriticalIssues int     `json:"critical_issues"`
	GoodScores     int     `json:"good_scores"`
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if _, _, err := runMigrations(s); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const auditColumns = `id, url, title, meta_description, word_count, keyword, keyword_count,
	h1_text, h2_texts, paragraphs, images_count, missing_alt_images_count,
	has_canonical, has_schema_markup, schema_types, robots_txt_present, sitemap_present,
	render_blocking_resources_count, lazy_loading_enabled, https,
	largest_contentful_paint, first_input_delay, cumulative_layout_shift, mobile_friendly,
	author_credentials, contact_info_present, last_updated, duplicate_content_flag, thin_content_flag,
	seo_health_percentage, recommendations, has_critical_errors, created_at, updated_at`

// Save upserts the record keyed by URL. A new record gets a UUID; an
// existing row keeps its id and created_at. The record's ID and timestamps
// are updated in place.
func (s *Store) Save(ctx context.Context, rec *audit.Record) error {
	if rec.URL == "" {
		return fmt.Errorf("cannot save audit without a URL")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	h2Texts, err := marshalJSON(rec.H2Texts)
	if err != nil {
		return err
	}
	paragraphs, err := marshalJSON(rec.Paragraphs)
	if err != nil {
		return err
	}
	schemaTypes, err := marshalJSON(rec.SchemaTypes)
	if err != nil {
		return err
	}
	recommendations, err := marshalJSON(rec.Recommendations)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var lastUpdated sql.NullTime
	if rec.LastUpdated != nil {
		lastUpdated = sql.NullTime{Time: rec.LastUpdated.UTC(), Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO audits (
			id, url, title, meta_description, word_count, keyword, keyword_count,
			h1_text, h2_texts, paragraphs, images_count, missing_alt_images_count,
			has_canonical, has_schema_markup, schema_types, robots_txt_present, sitemap_present,
			render_blocking_resources_count, lazy_loading_enabled, https,
			largest_contentful_paint, first_input_delay, cumulative_layout_shift, mobile_friendly,
			author_credentials, contact_info_present, last_updated, duplicate_content_flag, thin_content_flag,
			seo_health_percentage, recommendations, has_critical_errors, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			meta_description = excluded.meta_description,
			word_count = excluded.word_count,
			keyword = excluded.keyword,
			keyword_count = excluded.keyword_count,
			h1_text = excluded.h1_text,
			h2_texts = excluded.h2_texts,
			paragraphs = excluded.paragraphs,
			images_count = excluded.images_count,
			missing_alt_images_count = excluded.missing_alt_images_count,
			has_canonical = excluded.has_canonical,
			has_schema_markup = excluded.has_schema_markup,
			schema_types = excluded.schema_types,
			robots_txt_present = excluded.robots_txt_present,
			sitemap_present = excluded.sitemap_present,
			render_blocking_resources_count = excluded.render_blocking_resources_count,
			lazy_loading_enabled = excluded.lazy_loading_enabled,
			https = excluded.https,
			largest_contentful_paint = excluded.largest_contentful_paint,
			first_input_delay = excluded.first_input_delay,
			cumulative_layout_shift = excluded.cumulative_layout_shift,
			mobile_friendly = excluded.mobile_friendly,
			author_credentials = excluded.author_credentials,
			contact_info_present = excluded.contact_info_present,
			last_updated = excluded.last_updated,
			duplicate_content_flag = excluded.duplicate_content_flag,
			thin_content_flag = excluded.thin_content_flag,
			seo_health_percentage = excluded.seo_health_percentage,
			recommendations = excluded.recommendations,
			has_critical_errors = excluded.has_critical_errors,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`,
		rec.ID, rec.URL, rec.Title, rec.MetaDescription, rec.WordCount, rec.Keyword, rec.KeywordCount,
		rec.H1Text, h2Texts, paragraphs, rec.ImagesCount, rec.MissingAltImagesCount,
		rec.HasCanonical, rec.HasSchemaMarkup, schemaTypes, rec.RobotsTxtPresent, rec.SitemapPresent,
		rec.RenderBlockingResourcesCount, rec.LazyLoadingEnabled, rec.HTTPS,
		rec.LargestContentfulPaint, rec.FirstInputDelay, rec.CumulativeLayoutShift, rec.MobileFriendly,
		rec.AuthorCredentials, rec.ContactInfoPresent, lastUpdated, rec.DuplicateContentFlag, rec.ThinContentFlag,
		rec.SEOHealthPercentage, recommendations, rec.HasCriticalErrors, now, now,
	)

	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to save audit for %s: %w", rec.URL, err)
	}
	rec.UpdatedAt = now

	return nil
}

// GetByID returns the audit with the given id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = ?`, id)
	return scanRecord(row)
}

// GetByURL returns the audit for the given URL, or ErrNotFound.
func (s *Store) GetByURL(ctx context.Context, url string) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE url = ?`, url)
	return scanRecord(row)
}

// List returns audits newest first, filtered by the options.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*audit.Record, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE 1=1`
	var args []interface{}

	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query += ` AND (url LIKE ? OR title LIKE ? OR keyword LIKE ?)`
		args = append(args, pattern, pattern, pattern)
	}

	switch opts.Score {
	case "excellent":
		query += ` AND seo_health_percentage >= 90`
	case "good":
		query += ` AND seo_health_percentage BETWEEN 70 AND 89`
	case "average":
		query += ` AND seo_health_percentage BETWEEN 50 AND 69`
	case "poor":
		query += ` AND seo_health_percentage < 50`
	case "":
	default:
		return nil, fmt.Errorf("unknown score filter %q", opts.Score)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	records := make([]*audit.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes an audit by id. Deleting a missing audit returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete audit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Dashboard returns the aggregate counters: total audits, average health
// score, pages below 30 and pages at 80 or above.
func (s *Store) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	var avg sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			AVG(seo_health_percentage),
			COALESCE(SUM(CASE WHEN seo_health_percentage < 30 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN seo_health_percentage >= 80 THEN 1 ELSE 0 END), 0)
		FROM audits
	`).Scan(&stats.TotalAudits, &avg, &stats.CriticalIssues, &stats.GoodScores)
	if err != nil {
		return stats, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}

	if avg.Valid {
		stats.AverageScore = avg.Float64
	}

	return stats, nil
}

// scannable covers both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scannable) (*audit.Record, error) {
	rec := &audit.Record{}
	var h2Texts, paragraphs, schemaTypes, recommendations string
	var lastUpdated sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.URL, &rec.Title, &rec.MetaDescription, &rec.WordCount, &rec.Keyword, &rec.KeywordCount,
		&rec.H1Text, &h2Texts, &paragraphs, &rec.ImagesCount, &rec.MissingAltImagesCount,
		&rec.HasCanonical, &rec.HasSchemaMarkup, &schemaTypes, &rec.RobotsTxtPresent, &rec.SitemapPresent,
		&rec.RenderBlockingResourcesCount, &rec.LazyLoadingEnabled, &rec.HTTPS,
		&rec.LargestContentfulPaint, &rec.FirstInputDelay, &rec.CumulativeLayoutShift, &rec.MobileFriendly,
		&rec.AuthorCredentials, &rec.ContactInfoPresent, &lastUpdated, &rec.DuplicateContentFlag, &rec.ThinContentFlag,
		&rec.SEOHealthPercentage, &recommendations, &rec.HasCriticalErrors, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit: %w", err)
	}

	if lastUpdated.Valid {
		t := lastUpdated.Time
		rec.LastUpdated = &t
	}

	if err := unmarshalJSON(h2Texts, &rec.H2Texts); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(paragraphs, &rec.Paragraphs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(schemaTypes, &rec.SchemaTypes); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(recommendations, &rec.Recommendations); err != nil {
		return nil, err
	}

	return rec, nil
}

func marshalJSON(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(data string, target interface{}) error {
	if data == "" {
		data = "[]"
	}
	if err := json.Unmarshal([]byte(data), target); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}
