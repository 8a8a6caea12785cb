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

// WithRetention sets how many versions are kept per scoring system.
func WithRetention(versions int) Option {
	return func(s *MemoryStore) {
		if versions > 0 {
			s.retention = versions
		}
	}
}
