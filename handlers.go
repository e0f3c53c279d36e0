package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-audit/backend/audit"
	"github.com/seo-audit/backend/collector"
	"github.com/seo-audit/backend/config"
	"github.com/seo-audit/backend/logging"
	"github.com/seo-audit/backend/stats"
	"github.com/seo-audit/backend/store"
)

type server struct {
	cfg       *config.Config
	profile   audit.Profile
	collector *collector.Collector
	store     *store.Store
	stats     *stats.Storage
}

// auditRequest is the body of POST /api/audits. Vitals and content flags
// cannot be derived from static HTML, so callers with field data supply
// them here.
type auditRequest struct {
	URL     string `json:"url" binding:"required"`
	Keyword string `json:"keyword"`
	// Force triggers re-collection even when a fresh audit exists.
	Force bool `json:"force"`

	LargestContentfulPaint float64 `json:"largest_contentful_paint"`
	FirstInputDelay        float64 `json:"first_input_delay"`
	CumulativeLayoutShift  float64 `json:"cumulative_layout_shift"`

	DuplicateContentFlag bool `json:"duplicate_content_flag"`
	ThinContentFlag      bool `json:"thin_content_flag"`
}

type bulkAuditRequest struct {
	URLs    []string `json:"urls" binding:"required"`
	Keyword string   `json:"keyword"`
}

type bulkAuditResult struct {
	URL     string        `json:"url"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Audit   *audit.Record `json:"audit,omitempty"`
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *server) createAudit(c *gin.Context) {
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rec, status, err := s.runAudit(c, req)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(status, rec)
}

// runAudit implements the audit flow shared by the single and bulk
// endpoints: validate the URL, reuse a fresh stored audit unless forced,
// otherwise collect, evaluate and persist.
func (s *server) runAudit(c *gin.Context, req auditRequest) (*audit.Record, int, error) {
	pageURL, err := collector.NormalizeURL(req.URL)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	existing, err := s.store.GetByURL(c.Request.Context(), pageURL)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, http.StatusInternalServerError, err
	}

	reauditWindow := time.Duration(s.cfg.ReauditHours) * time.Hour
	if existing != nil && !req.Force && req.Keyword == existing.Keyword &&
		time.Since(existing.UpdatedAt) < reauditWindow {
		s.stats.RecordAudit(false, false, true, false)
		return existing, http.StatusOK, nil
	}

	rec, err := s.collector.Collect(c.Request.Context(), pageURL, req.Keyword)
	if err != nil {
		logging.Log.WithField("url", pageURL).Warnf("Collection failed: %v", err)
		s.stats.RecordAudit(false, true, false, false)
		return nil, http.StatusBadGateway, errors.New("failed to fetch the page; check that the site is accessible")
	}

	rec.LargestContentfulPaint = req.LargestContentfulPaint
	rec.FirstInputDelay = req.FirstInputDelay
	rec.CumulativeLayoutShift = req.CumulativeLayoutShift
	rec.DuplicateContentFlag = req.DuplicateContentFlag
	rec.ThinContentFlag = req.ThinContentFlag

	// Evaluate before persisting so the stored derived fields always match
	// the inputs that produced them.
	s.profile.Refresh(rec, time.Now())

	if existing != nil {
		rec.ID = existing.ID
	}
	if err := s.store.Save(c.Request.Context(), rec); err != nil {
		s.stats.RecordAudit(false, true, false, false)
		return nil, http.StatusInternalServerError, err
	}

	s.stats.RecordAudit(true, false, false, rec.HasCriticalErrors)

	status := http.StatusOK
	if existing == nil {
		status = http.StatusCreated
	}
	return rec, status, nil
}

func (s *server) bulkAudit(c *gin.Context) {
	var req bulkAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a non-empty urls list"})
		return
	}
	if len(req.URLs) > s.cfg.BulkLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Maximum " + strconv.Itoa(s.cfg.BulkLimit) + " URLs allowed per bulk request",
		})
		return
	}

	results := make([]bulkAuditResult, 0, len(req.URLs))
	for _, rawURL := range req.URLs {
		rec, _, err := s.runAudit(c, auditRequest{URL: rawURL, Keyword: req.Keyword})
		if err != nil {
			results = append(results, bulkAuditResult{URL: rawURL, Error: err.Error()})
			continue
		}
		results = append(results, bulkAuditResult{URL: rawURL, Success: true, Audit: rec})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *server) getAudit(c *gin.Context) {
	rec, err := s.store.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit": rec,
		"grade": rec.Grade(),
	})
}

func (s *server) listAudits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := s.store.List(c.Request.Context(), store.ListOptions{
		Search: c.Query("search"),
		Score:  c.Query("score"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audits": records,
		"count":  len(records),
	})
}

func (s *server) deleteAudit(c *gin.Context) {
	err := s.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// comparisonData is the chart-ready side-by-side view of several audits:
// parallel slices indexed by audit, one overall score and three component
// scores per URL.
type comparisonData struct {
	Labels          []string `json:"labels"`
	Scores          []int    `json:"scores"`
	TitleScores     []int    `json:"title_scores"`
	ContentScores   []int    `json:"content_scores"`
	TechnicalScores []int    `json:"technical_scores"`
}

func (s *server) compareAudits(c *gin.Context) {
	ids := c.QueryArray("ids")
	if len(ids) == 1 && strings.Contains(ids[0], ",") {
		ids = strings.Split(ids[0], ",")
	}
	if len(ids) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide at least two ids to compare"})
		return
	}

	data := comparisonData{
		Labels:          []string{},
		Scores:          []int{},
		TitleScores:     []int{},
		ContentScores:   []int{},
		TechnicalScores: []int{},
	}

	// Unknown ids are skipped rather than failing the whole comparison.
	for _, id := range ids {
		rec, err := s.store.GetByID(c.Request.Context(), strings.TrimSpace(id))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		components := s.profile.ComponentScores(rec)
		data.Labels = append(data.Labels, rec.URL)
		data.Scores = append(data.Scores, rec.SEOHealthPercentage)
		data.TitleScores = append(data.TitleScores, components.Title)
		data.ContentScores = append(data.ContentScores, components.Content)
		data.TechnicalScores = append(data.TechnicalScores, components.Technical)
	}

	if len(data.Labels) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No audits found for the given ids"})
		return
	}

	c.JSON(http.StatusOK, data)
}

func (s *server) dashboard(c *gin.Context) {
	dashboardStats, err := s.store.Dashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboardStats)
}

func (s *server) statistics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": s.stats.GetCurrentStats(),
		"months":  s.stats.GetAllMonths(),
	})
}
