// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/stylematch/internal/adapters/mq/queue"
	"github.com/okian/stylematch/internal/adapters/mq/worker"
	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/adapters/rolegrant"
	"github.com/okian/stylematch/internal/domain/dedupe"
	"github.com/okian/stylematch/internal/domain/elo"
	"github.com/okian/stylematch/internal/domain/matching"
	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/ranking"
	"github.com/okian/stylematch/internal/domain/recommend"
	"github.com/okian/stylematch/internal/domain/types"
	"github.com/okian/stylematch/pkg/logger"
	"github.com/okian/stylematch/pkg/metrics"
)

const (
	defaultQueueSize    = 10000
	defaultDedupeSize   = 100000
	defaultMaxRetries   = 5
	drainTimeout        = 5 * time.Second
	systemStatsInterval = 10 * time.Second
)

// Service implements the API dependencies for the matching system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	recommender *recommend.Engine
	matcher     *matching.Engine
	rater       *elo.Rater
	deduper     dedupe.Deduper
	outcomes    *queue.InMemoryQueue
	pool        *worker.Pool
	granter     rolegrant.Granter

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	maxRetries  int
	kFactor     float64
	capacity    int
	maxPageSize int
	chain       ranking.Chain

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	bg        sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		maxRetries:  defaultMaxRetries,
		kFactor:     elo.DefaultKFactor,
		capacity:    matching.DefaultCapacity,
		chain:       ranking.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engines and starts the rating workers. Calling Start on a
// running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting matching service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(context.WithoutCancel(ctx))
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.granter == nil {
		s.granter = rolegrant.NopGranter{Log: s.logger.Named("rolegrant")}
	}

	recOpts := []recommend.Option{recommend.WithChain(s.chain)}
	if s.maxPageSize > 0 {
		recOpts = append(recOpts, recommend.WithMaxPageSize(s.maxPageSize))
	}
	s.recommender = recommend.NewEngine(s.store, recOpts...)
	s.matcher = matching.NewEngine(
		matching.WithChain(s.chain),
		matching.WithDefaultCapacity(s.capacity),
	)
	s.rater = elo.NewRater(elo.WithKFactor(s.kFactor))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.outcomes = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// Workers outlive request contexts; Stop drains and ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.outcomes, s.store, s.rater,
		worker.WithMaxRetries(s.maxRetries),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(runCtx)

	s.bg.Add(1)
	go s.reportSystemStats(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Any("ranking", s.chain.Names()),
	)
	return nil
}

// Stop closes intake, lets the workers drain queued outcomes, then releases
// the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping matching service...")

	var errs []error
	_ = s.outcomes.Close()

	drainCtx, cancelDrain := context.WithTimeout(ctx, drainTimeout)
	if err := s.pool.Wait(drainCtx); err != nil {
		s.logger.Warn(ctx, "outcome queue not drained", logger.Int("pending", s.outcomes.Len()), logger.Error(err))
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	cancelDrain()

	s.cancel()
	s.bg.Wait()

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	applied, failed := s.pool.Processed()
	s.started = false
	s.logger.Info(ctx, "matching service stopped",
		logger.Int64("applied", applied),
		logger.Int64("failed", failed),
	)
	return errors.Join(errs...)
}

func (s *Service) reportSystemStats(ctx context.Context) {
	defer s.bg.Done()
	ticker := time.NewTicker(systemStatsInterval)
	defer ticker.Stop()
	for {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		metrics.UpdateSystemStats(runtime.NumGoroutine(), ms.HeapAlloc)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Recommend ranks catalog offerings for a style search.
func (s *Service) Recommend(ctx context.Context, q recommend.Query) (recommend.Page, error) {
	start := time.Now()
	page, err := s.recommender.Recommend(ctx, q)
	if err != nil {
		metrics.RecordErrorByComponent("recommend", errorKind(err))
		return recommend.Page{}, err
	}
	metrics.RecordRecommendation(msSince(start), page.UsedFallback)
	s.logger.Debug(ctx, "recommendation served",
		logger.String("style", q.StyleName),
		logger.Int("total", page.TotalElements),
		logger.Bool("fallback", page.UsedFallback),
	)
	return page, nil
}

// StableMatch validates the participants and runs one stable matching.
func (s *Service) StableMatch(ctx context.Context, customers []model.CustomerCandidate, stylists []matching.Stylist) ([]model.Pair, error) {
	if err := matching.Validate(customers, stylists); err != nil {
		return nil, err
	}
	start := time.Now()
	res := s.matcher.Match(customers, stylists)
	metrics.RecordMatchRun(msSince(start), res.Proposals, len(res.Pairs))
	s.logger.Debug(ctx, "stable matching run",
		logger.Int("customers", len(customers)),
		logger.Int("stylists", len(stylists)),
		logger.Int("pairs", len(res.Pairs)),
		logger.Int("proposals", res.Proposals),
	)
	return res.Pairs, nil
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordOutcomeDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen set, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered event IDs.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits an outcome for asynchronous rating.
func (s *Service) Enqueue(ctx context.Context, o model.MatchOutcome) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	if err := s.outcomes.Enqueue(ctx, o); err != nil {
		s.logger.Warn(ctx, "outcome rejected",
			logger.String("event_id", o.EventID),
			logger.Error(err),
		)
		return err
	}
	s.logger.Debug(ctx, "outcome enqueued",
		logger.String("event_id", o.EventID),
		logger.String("winner", o.WinnerID),
		logger.String("loser", o.LoserID),
	)
	return nil
}

// PublishOffering stores an offering. A stylist's first offering triggers the
// stylist role grant; a failed grant is logged and does not undo the offering.
func (s *Service) PublishOffering(ctx context.Context, o model.ServiceOffering) (model.ServiceOffering, error) {
	first, err := s.store.AddOffering(ctx, o)
	if err != nil {
		return model.ServiceOffering{}, err
	}
	if first {
		if err := s.granter.GrantStylist(ctx, o.Stylist.ID); err != nil {
			metrics.RecordErrorByComponent("rolegrant", "grant_failed")
			s.logger.Error(ctx, "stylist role grant failed",
				logger.String("stylist_id", o.Stylist.ID),
				logger.Error(err),
			)
		}
	}
	rating, err := s.store.GetRating(ctx, o.Stylist.ID)
	if err != nil {
		return model.ServiceOffering{}, fmt.Errorf("read rating %s: %w", o.Stylist.ID, err)
	}
	o.Stylist.EloRating = rating.EloRating
	o.Stylist.Version = rating.Version
	s.logger.Info(ctx, "offering published",
		logger.String("offering_id", o.ID),
		logger.String("stylist_id", o.Stylist.ID),
		logger.Bool("first", first),
	)
	return o, nil
}

// TopN returns the top-n stylists by Elo.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the rank and rating of one stylist.
func (s *Service) Rank(ctx context.Context, stylistID string) (types.Entry, error) {
	return s.store.Rank(ctx, stylistID)
}

// WaitIdle blocks until the outcome queue is empty and no worker is busy, or
// ctx ends. Tests and the load generator use it to observe settled ratings.
func (s *Service) WaitIdle(ctx context.Context, submitted int64) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		applied, failed := s.pool.Processed()
		if applied+failed >= submitted && s.outcomes.Len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait idle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"ranking":     s.chain.Names(),
		"kFactor":     s.kFactor,
		"capacity":    s.capacity,
	}
	if !s.started {
		return stats
	}

	applied, failed := s.pool.Processed()
	stylists := s.store.Count(ctx)
	offerings := s.store.OfferingCount(ctx)
	stats["kFactor"] = s.rater.KFactor()
	stats["queueLength"] = s.outcomes.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["outcomesApplied"] = applied
	stats["outcomesFailed"] = failed
	stats["totalStylists"] = stylists
	stats["totalOfferings"] = offerings
	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

	metrics.UpdateStylistsTotal(stylists)
	metrics.UpdateOfferingsTotal(offerings)
	return stats
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, recommend.ErrInvalidPage):
		return "invalid_page"
	case errors.Is(err, recommend.ErrCatalog):
		return "catalog"
	default:
		return "unknown"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
