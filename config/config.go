package config

import (
	"fmt"
	"log"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds the resolved runtime configuration.
type Config struct {
	Port         string
	DBPath       string
	DataDir      string
	ProfilePath  string
	UserAgent    string
	ReauditHours int
	BulkLimit    int
	RateLimit    float64
	RateBurst    float64
	LogLevel     string
	LogFile      string
	Debug        bool
	Version      string
}

type rawConfig struct {
	Port         string  `long:"port" env:"PORT" default:"8082" description:"HTTP server port"`
	DBPath       string  `long:"db-path" env:"DB_PATH" default:"./data/audits.db" description:"SQLite database file path"`
	DataDir      string  `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for statistics and other service data"`
	ProfilePath  string  `long:"profile" env:"SCORING_PROFILE" description:"Optional YAML file overriding scoring thresholds"`
	UserAgent    string  `long:"user-agent" env:"USER_AGENT" default:"SEOAudit/1.0" description:"User agent for page fetches"`
	ReauditHours int     `long:"reaudit-hours" env:"REAUDIT_HOURS" default:"24" description:"Hours before a stored audit is considered stale and re-collected"`
	BulkLimit    int     `long:"bulk-limit" env:"BULK_LIMIT" default:"10" description:"Maximum URLs per bulk audit request"`
	RateLimit    float64 `long:"rate-limit" env:"RATE_LIMIT" default:"2" description:"Requests per second per client IP"`
	RateBurst    float64 `long:"rate-burst" env:"RATE_BURST" default:"5" description:"Rate limiter bucket size"`
	LogLevel     string  `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error)"`
	LogFile      string  `long:"log-file" env:"LOG_FILE" description:"Optional log file in addition to stdout"`
	Debug        bool    `long:"debug" env:"DEBUG" description:"Enable debug mode"`
}

// Load reads configuration from .env files, the environment and command
// line flags, in that order of precedence (flags win). Returns (nil, nil)
// when --help was requested.
func Load() (*Config, error) {
	// .env.development takes precedence for local development, matching
	// the deployment setup.
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}

	var raw rawConfig
	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Config{
		Port:         raw.Port,
		DBPath:       raw.DBPath,
		DataDir:      raw.DataDir,
		ProfilePath:  raw.ProfilePath,
		UserAgent:    raw.UserAgent,
		ReauditHours: raw.ReauditHours,
		BulkLimit:    raw.BulkLimit,
		RateLimit:    raw.RateLimit,
		RateBurst:    raw.RateBurst,
		LogLevel:     raw.LogLevel,
		LogFile:      raw.LogFile,
		Debug:        raw.Debug,
		Version:      Version,
	}

	if cfg.ReauditHours <= 0 {
		return nil, fmt.Errorf("reaudit-hours must be positive, got %d", cfg.ReauditHours)
	}
	if cfg.BulkLimit <= 0 {
		return nil, fmt.Errorf("bulk-limit must be positive, got %d", cfg.BulkLimit)
	}

	return cfg, nil
}
