package service

import (
	"context"
	"fmt"

	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/adapters/rolegrant"
	"github.com/okian/stylematch/internal/config"
	"github.com/okian/stylematch/internal/domain/ranking"
	"github.com/okian/stylematch/pkg/logger"
)

// OpenStore opens the persistence backend selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return repository.NewMemoryStore(ctx, repository.WithDefaultElo(cfg.DefaultElo)), nil
	case config.StorePostgres:
		return repository.NewPostgresStore(ctx, cfg.DatabaseDSN, cfg.DefaultElo)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}

// NewGranter returns an HTTP granter when an identity endpoint is configured
// and a logging no-op otherwise.
func NewGranter(cfg *config.Config, log logger.Logger) rolegrant.Granter {
	if cfg.RoleGrantURL == "" {
		return rolegrant.NopGranter{Log: log}
	}
	return rolegrant.NewHTTPGranter(cfg.RoleGrantURL,
		rolegrant.WithTimeout(cfg.RoleGrantTimeout()),
		rolegrant.WithLogger(log),
	)
}

// FromConfig builds the service options described by cfg. The returned store
// is owned by the service once passed through WithStore.
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) ([]Option, error) {
	chain, err := ranking.Parse(cfg.RankingCriteria)
	if err != nil {
		return nil, fmt.Errorf("ranking criteria: %w", err)
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithStore(store),
		WithGranter(NewGranter(cfg, log.Named("rolegrant"))),
		WithLogger(log.Named("service")),
		WithChain(chain),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithMaxRetries(cfg.RatingMaxRetries),
		WithKFactor(cfg.EloKFactor),
		WithStylistCapacity(cfg.StylistCapacity),
		WithMaxPageSize(cfg.MaxPageSize),
	}, nil
}
