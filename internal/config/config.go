// Package config defines service configuration and its loader.
//
// Conventions:
// - New(ctx) returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and MATCH_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/stylematch/internal/domain/ranking"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`
	// DatabaseDSN is the PostgreSQL connection string for the postgres store.
	DatabaseDSN string `koanf:"database_dsn"`
	// SeedFile is an optional YAML catalog loaded at startup.
	SeedFile string `koanf:"seed_file"`

	// DefaultPageSize is used when GET /recommend omits size.
	DefaultPageSize int `koanf:"default_page_size"`
	// MaxPageSize clamps GET /recommend?size.
	MaxPageSize int `koanf:"max_page_size"`
	// RankingCriteria orders the tie-breaks applied after Elo descending in
	// recommendations and matching. elo_desc may only be listed first.
	RankingCriteria []string `koanf:"ranking_criteria"`

	EloKFactor      float64 `koanf:"elo_k_factor"`
	DefaultElo      float64 `koanf:"default_elo"`
	StylistCapacity int     `koanf:"stylist_capacity"`

	// QueueSize bounds the in-memory match outcome queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of rating workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize is how many outcome event IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// RatingMaxRetries bounds retries after an optimistic write loses a race.
	RatingMaxRetries int `koanf:"rating_max_retries"`

	// MaxLeaderboardLimit caps GET /stylists/top?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RoleGrantURL is the identity service endpoint. Empty disables grants.
	RoleGrantURL       string `koanf:"role_grant_url"`
	RoleGrantTimeoutMS int    `koanf:"role_grant_timeout_ms"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		DefaultPageSize:     10,
		MaxPageSize:         100,
		RankingCriteria:     []string{"cost_asc", "distance_asc"},
		EloKFactor:          32,
		DefaultElo:          1500,
		StylistCapacity:     1,
		QueueSize:           10_000,
		WorkerCount:         4,
		DedupeSize:          100_000,
		RatingMaxRetries:    5,
		MaxLeaderboardLimit: 100,
		RoleGrantTimeoutMS:  2000,
	}
}

// RoleGrantTimeout returns the role grant timeout as a duration.
func (c *Config) RoleGrantTimeout() time.Duration {
	return time.Duration(c.RoleGrantTimeoutMS) * time.Millisecond
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			problems = append(problems, "database_dsn is required for the postgres store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store %q", c.Store))
	}
	if c.DefaultPageSize < 0 || c.MaxPageSize < 1 {
		problems = append(problems, "page sizes must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		problems = append(problems, "default_page_size exceeds max_page_size")
	}
	if _, err := ranking.Parse(c.RankingCriteria); err != nil {
		problems = append(problems, fmt.Sprintf("ranking_criteria: %v", err))
	}
	if c.EloKFactor <= 0 {
		problems = append(problems, "elo_k_factor must be positive")
	}
	if c.DefaultElo <= 0 {
		problems = append(problems, "default_elo must be positive")
	}
	if c.StylistCapacity < 1 {
		problems = append(problems, "stylist_capacity must be at least 1")
	}
	if c.QueueSize < 1 || c.WorkerCount < 1 {
		problems = append(problems, "queue_size and worker_count must be at least 1")
	}
	if c.RatingMaxRetries < 0 {
		problems = append(problems, "rating_max_retries must not be negative")
	}
	if c.MaxLeaderboardLimit < 1 {
		problems = append(problems, "max_leaderboard_limit must be at least 1")
	}
	if c.RoleGrantTimeoutMS < 0 {
		problems = append(problems, "role_grant_timeout_ms must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
