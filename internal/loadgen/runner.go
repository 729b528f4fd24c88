// Package loadgen drives a running matching service over HTTP. It publishes
// synthetic stylists, submits match outcomes concurrently and verifies the
// resulting ratings and leaderboard.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stylematch/pkg/logger"
)

const (
	maxSubmitAttempts = 5
	retryBackoff      = 20 * time.Millisecond
	settlePoll        = 50 * time.Millisecond
)

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Named("loadgen")
	start := time.Now()
	report := Report{Stylists: cfg.Stylists}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("stylists", cfg.Stylists),
		logger.Int("outcomes", cfg.Outcomes),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRatio", cfg.DuplicateRatio),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	gen := newGenerator(cfg.Seed)
	offerings := gen.offerings(cfg.Stylists, cfg.StyleName)
	ids := make([]string, len(offerings))
	for i, o := range offerings {
		ids[i] = o.Stylist.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, o := range offerings {
		g.Go(func() error { return client.PublishOffering(gctx, o) })
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("publish stylists: %w", err)
	}

	var err error
	if report.RatingSumStart, err = ratingSum(ctx, client, ids, cfg.Workers); err != nil {
		return report, err
	}
	before, err := client.Stats(ctx)
	if err != nil {
		return report, err
	}

	outcomes := gen.withDuplicates(gen.outcomes(ids, cfg.Outcomes), cfg.DuplicateRatio)
	if err := submitAll(ctx, client, outcomes, cfg.Workers, &report); err != nil {
		return report, fmt.Errorf("submit outcomes: %w", err)
	}
	log.Info(ctx, "outcomes submitted",
		logger.Int64("accepted", report.Accepted),
		logger.Int64("duplicates", report.Duplicates),
		logger.Int64("backpressured", report.Backpressured),
		logger.Int64("failed", report.Failed),
	)

	if err := settle(ctx, client, before, cfg.SettleTimeout, &report); err != nil {
		return report, err
	}
	if report.RatingSumEnd, err = ratingSum(ctx, client, ids, cfg.Workers); err != nil {
		return report, err
	}
	if report.Leaderboard, err = client.Top(ctx, cfg.TopN); err != nil {
		return report, fmt.Errorf("leaderboard: %w", err)
	}
	report.Duration = time.Since(start)

	if err := verify(ctx, client, cfg, report); err != nil {
		return report, err
	}
	log.Info(ctx, "load run completed",
		logger.Int64("applied", report.Applied),
		logger.Float64("ratingSum", report.RatingSumEnd),
		logger.Duration("duration", report.Duration),
		logger.Float64("outcomesPerSecond", float64(report.Submitted)/report.Duration.Seconds()),
	)
	return report, nil
}

// submitAll posts every outcome with at most workers requests in flight.
// Backpressured submissions are retried with a linear backoff.
func submitAll(ctx context.Context, client *Client, outcomes []Outcome, workers int, report *Report) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, o := range outcomes {
		g.Go(func() error {
			atomic.AddInt64(&report.Submitted, 1)
			for attempt := 1; ; attempt++ {
				status, err := client.SubmitOutcome(gctx, o)
				switch {
				case err != nil:
					if gctx.Err() != nil {
						return gctx.Err()
					}
					atomic.AddInt64(&report.Failed, 1)
					return nil
				case status == http.StatusAccepted:
					atomic.AddInt64(&report.Accepted, 1)
					return nil
				case status == http.StatusOK:
					atomic.AddInt64(&report.Duplicates, 1)
					return nil
				}
				// 429 or 503: the service has already forgotten the event id
				atomic.AddInt64(&report.Backpressured, 1)
				if attempt == maxSubmitAttempts {
					atomic.AddInt64(&report.Failed, 1)
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(time.Duration(attempt) * retryBackoff):
				}
			}
		})
	}
	return g.Wait()
}

// settle polls /stats until every accepted outcome has been applied or has
// failed.
func settle(ctx context.Context, client *Client, before map[string]any, timeout time.Duration, report *Report) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	baseApplied := statInt64(before, "outcomesApplied")
	baseFailed := statInt64(before, "outcomesFailed")
	for {
		stats, err := client.Stats(ctx)
		if err == nil {
			report.Applied = statInt64(stats, "outcomesApplied") - baseApplied
			report.ApplyFailures = statInt64(stats, "outcomesFailed") - baseFailed
			if report.Applied+report.ApplyFailures >= report.Accepted {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %d of %d processed", ErrNotSettled, report.Applied+report.ApplyFailures, report.Accepted)
			}
			return ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

// ratingSum fetches every stylist's rating and adds them up.
func ratingSum(ctx context.Context, client *Client, ids []string, workers int) (float64, error) {
	ratings := make([]float64, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			e, err := client.Rank(gctx, id)
			if err != nil {
				return err
			}
			ratings[i] = e.EloRating
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("fetch ratings: %w", err)
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum, nil
}
