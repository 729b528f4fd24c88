// Package worker applies match outcomes to stylist ratings.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/pkg/logger"
	"github.com/okian/stylematch/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	defaultMaxRetries   = 5
	poolShutdownTimeout = 30 * time.Second
)

// Rater computes both post-match ratings from the pre-match pair.
type Rater interface {
	Apply(winner, loser float64) (newWinner, newLoser float64)
}

// Source delivers outcomes to workers.
type Source interface {
	Dequeue() <-chan model.MatchOutcome
}

// Worker reads outcomes and writes both ratings with optimistic retries.
type Worker struct {
	source     Source
	ratings    repository.RatingStore
	rater      Rater
	name       string
	maxRetries int
	logger     logger.Logger
	active     *atomic.Int64

	processed atomic.Int64
	failed    atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewWorker creates a worker with configuration options.
func NewWorker(source Source, ratings repository.RatingStore, rater Rater, opts ...Option) *Worker {
	w := &Worker{
		source:     source,
		ratings:    ratings,
		rater:      rater,
		name:       "worker",
		maxRetries: defaultMaxRetries,
		logger:     logger.Get().Named("worker"),
		active:     new(atomic.Int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes outcomes until ctx is cancelled, Shutdown is called or the
// source channel is closed and drained.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	outcomes := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case o, ok := <-outcomes:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
			if err := w.Process(ctx, o); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "outcome not applied",
					logger.String("event_id", o.EventID),
					logger.Error(err),
				)
			} else {
				w.processed.Add(1)
			}
			metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		}
	}
}

// Shutdown signals the worker to stop and waits for the current outcome.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process applies one outcome. Both ratings are computed from one snapshot
// of the pair and written together, so an outcome is applied to both sides
// or to neither. A lost race rereads the pair and recomputes both sides.
func (w *Worker) Process(ctx context.Context, o model.MatchOutcome) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if o.WinnerID == o.LoserID {
		metrics.RecordWorkerError()
		return fmt.Errorf("%w: %s", ErrSelfMatch, o.WinnerID)
	}

	for attempt := 0; ; attempt++ {
		winner, loser, err := w.readPair(ctx, o)
		if err != nil {
			metrics.RecordWorkerError()
			return err
		}
		nextWinner, nextLoser := w.rater.Apply(winner.EloRating, loser.EloRating)
		_, err = w.ratings.CompareAndSwapRatings(ctx,
			repository.RatingUpdate{StylistID: o.WinnerID, ExpectedVersion: winner.Version, EloRating: nextWinner},
			repository.RatingUpdate{StylistID: o.LoserID, ExpectedVersion: loser.Version, EloRating: nextLoser},
		)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordWorkerError()
			return fmt.Errorf("write ratings %s/%s: %w", o.WinnerID, o.LoserID, err)
		}

		metrics.RecordVersionConflict()
		if attempt >= w.maxRetries {
			metrics.RecordRetriesExhausted()
			metrics.RecordErrorByComponent("worker", "retries_exhausted")
			return fmt.Errorf("%w: %s/%s after %d attempts", ErrRetriesExhausted, o.WinnerID, o.LoserID, attempt+1)
		}
	}

	metrics.RecordEloUpdate(2)
	metrics.RecordOutcomeProcessed()
	w.logger.Debug(ctx, "outcome applied",
		logger.String("event_id", o.EventID),
		logger.String("winner", o.WinnerID),
		logger.String("loser", o.LoserID),
	)
	return nil
}

func (w *Worker) readPair(ctx context.Context, o model.MatchOutcome) (winner, loser repository.Rating, err error) {
	if winner, err = w.ratings.GetRating(ctx, o.WinnerID); err != nil {
		return winner, loser, fmt.Errorf("read winner %s: %w", o.WinnerID, err)
	}
	if loser, err = w.ratings.GetRating(ctx, o.LoserID); err != nil {
		return winner, loser, fmt.Errorf("read loser %s: %w", o.LoserID, err)
	}
	return winner, loser, nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing one source and store.
func NewPool(workerCount int, source Source, ratings repository.RatingStore, rater Rater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	active := new(atomic.Int64)
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewWorker(source, ratings, rater, wopts...)
		w.active = active
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of outcomes applied and failed across workers.
func (p *Pool) Processed() (applied, failed int64) {
	for _, w := range p.workers {
		applied += w.processed.Load()
		failed += w.failed.Load()
	}
	return applied, failed
}

// Wait blocks until every worker has returned, for example after the source
// channel was closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown stops all workers, waiting up to a bounded timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for _, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.name, err))
		}
	}
	return errors.Join(errs...)
}
