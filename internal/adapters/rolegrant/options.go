package rolegrant

import (
	"net/http"
	"time"

	"github.com/okian/stylematch/pkg/logger"
)

// Option applies a configuration option to the HTTPGranter.
type Option func(*HTTPGranter)

// WithTimeout bounds every grant request.
func WithTimeout(d time.Duration) Option {
	return func(g *HTTPGranter) {
		if d > 0 {
			g.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGranter) {
		if c != nil {
			g.HTTPClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *HTTPGranter) {
		if l != nil {
			g.log = l
		}
	}
}
