package loadgen

import (
	"runtime"
	"time"

	"github.com/okian/stylematch/internal/domain/types"
)

// Defaults used when a Config field is zero.
const (
	DefaultStylists      = 50
	DefaultOutcomes      = 5000
	DefaultTopN          = 10
	DefaultTimeout       = 10 * time.Second
	DefaultSettleTimeout = 30 * time.Second
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Stylists       int           // Number of stylists to publish
	Outcomes       int           // Number of distinct match outcomes to submit
	DuplicateRatio float64       // Share of outcomes resubmitted with the same event id
	TopN           int           // Leaderboard size fetched after the run
	Workers        int           // Concurrent HTTP submitters
	Timeout        time.Duration // Per-request timeout
	SettleTimeout  time.Duration // How long to wait for the workers to drain
	Seed           uint64        // Generator seed; zero picks one from the clock
	StyleName      string        // Style published for every generated stylist
}

func (c Config) withDefaults() Config {
	if c.Stylists < 2 {
		c.Stylists = DefaultStylists
	}
	if c.Outcomes <= 0 {
		c.Outcomes = DefaultOutcomes
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	if c.StyleName == "" {
		c.StyleName = "loadgen"
	}
	if c.DuplicateRatio < 0 {
		c.DuplicateRatio = 0
	}
	return c
}

// Outcome is one POST /outcomes body.
type Outcome struct {
	EventID  string `json:"eventId"`
	WinnerID string `json:"winnerId"`
	LoserID  string `json:"loserId"`
	TS       string `json:"ts,omitempty"`
}

// Entry is one leaderboard row.
type Entry = types.Entry

// Report summarizes a load run.
type Report struct {
	Stylists       int
	Submitted      int64
	Accepted       int64
	Duplicates     int64
	Backpressured  int64
	Failed         int64
	Applied        int64
	ApplyFailures  int64
	RatingSumStart float64
	RatingSumEnd   float64
	Leaderboard    []Entry
	Duration       time.Duration
}
