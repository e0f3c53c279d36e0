package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/seo-audit/backend/audit"
	"github.com/seo-audit/backend/collector"
	"github.com/seo-audit/backend/config"
	"github.com/seo-audit/backend/logging"
	"github.com/seo-audit/backend/middleware"
	"github.com/seo-audit/backend/stats"
	"github.com/seo-audit/backend/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg == nil {
		return // --help
	}

	if err := logging.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		logging.Log.Fatalf("Failed to initialize logging: %v", err)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	profile, err := audit.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logging.Log.Fatalf("Failed to load scoring profile: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logging.Log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logging.Log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	statistics, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		logging.Log.Fatalf("Failed to initialize statistics storage: %v", err)
	}
	defer statistics.Shutdown()

	srv := &server{
		cfg:       cfg,
		profile:   profile,
		collector: collector.New(cfg.UserAgent),
		store:     db,
		stats:     statistics,
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	r.Use(rateLimiter.RateLimit())

	// CORS for the dashboard frontend.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api")
	{
		api.GET("/health", srv.health)
		api.POST("/audits", srv.createAudit)
		api.POST("/audits/bulk", srv.bulkAudit)
		api.GET("/audits", srv.listAudits)
		api.GET("/audits/:id", srv.getAudit)
		api.DELETE("/audits/:id", srv.deleteAudit)
		api.GET("/compare", srv.compareAudits)
		api.GET("/dashboard", srv.dashboard)
		api.GET("/statistics", srv.statistics)
	}

	logging.Log.Infof("Server starting on http://localhost:%s (version %s)", cfg.Port, cfg.Version)
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Log.Fatalf("Failed to start server: %v", err)
	}
}
