package service

import (
	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/adapters/rolegrant"
	"github.com/okian/stylematch/internal/domain/ranking"
	"github.com/okian/stylematch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of rating workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the outcome queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many outcome event IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxRetries bounds retries of a lost rating write.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithKFactor sets the Elo K-factor.
func WithKFactor(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithStylistCapacity sets the default number of slots per stylist in a
// matching run.
func WithStylistCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMaxPageSize caps recommendation page sizes.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithChain sets the ranking chain shared by recommendations and matching.
func WithChain(chain ranking.Chain) Option {
	return func(s *Service) {
		if len(chain) > 0 {
			s.chain = chain
		}
	}
}

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGranter sets the role grant client.
func WithGranter(g rolegrant.Granter) Option {
	return func(s *Service) {
		if g != nil {
			s.granter = g
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
