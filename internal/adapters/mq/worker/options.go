package worker

import (
	"github.com/okian/stylematch/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxRetries sets how many times a lost rating write is retried.
func WithMaxRetries(n int) Option {
	return func(w *Worker) {
		if n >= 0 {
			w.maxRetries = n
		}
	}
}
