package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithDefaultElo sets the rating given to stylists registered without one.
func WithDefaultElo(elo float64) Option {
	return func(s *MemoryStore) {
		if elo > 0 {
			s.defaultElo = elo
		}
	}
}
