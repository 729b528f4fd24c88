package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/stylematch/pkg/logger"
)

// ratingSumTolerance absorbs float rounding across many small updates.
const ratingSumTolerance = 1e-6

// verify checks the service state after a run.
//
// Submission counts must add up. The leaderboard must be sorted with
// competition ranks that agree with single stylist lookups. Each applied
// outcome moves rating between two stylists in one write, so when no apply
// failed the sum of the run's ratings must not change.
func verify(ctx context.Context, client *Client, cfg Config, r Report) error {
	log := logger.Named("loadgen")
	var errs []error

	if r.Failed == 0 {
		if r.Accepted != int64(cfg.Outcomes) {
			errs = append(errs, fmt.Errorf("accepted %d outcomes, want %d", r.Accepted, cfg.Outcomes))
		}
		if r.Accepted+r.Duplicates != r.Submitted {
			errs = append(errs, fmt.Errorf("accepted %d + duplicates %d != submitted %d", r.Accepted, r.Duplicates, r.Submitted))
		}
	}

	if err := checkLeaderboard(r.Leaderboard); err != nil {
		errs = append(errs, err)
	}
	for _, e := range r.Leaderboard {
		got, err := client.Rank(ctx, e.StylistID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if got != e {
			errs = append(errs, fmt.Errorf("stylist %s: leaderboard says %+v, lookup says %+v", e.StylistID, e, got))
		}
	}

	drift := r.RatingSumEnd - r.RatingSumStart
	if r.ApplyFailures == 0 {
		if math.Abs(drift) > ratingSumTolerance*float64(r.Stylists) {
			errs = append(errs, fmt.Errorf("rating sum moved from %.6f to %.6f", r.RatingSumStart, r.RatingSumEnd))
		}
	} else {
		log.Info(ctx, "rating sum not checked",
			logger.Float64("drift", drift),
			logger.Int64("applyFailures", r.ApplyFailures),
		)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}

// checkLeaderboard verifies descending ratings and competition ranking: tied
// ratings share a rank and the next distinct rating skips ahead.
func checkLeaderboard(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("leaderboard starts at rank %d", e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.EloRating > prev.EloRating:
			return fmt.Errorf("leaderboard not sorted at position %d", i+1)
		case e.EloRating == prev.EloRating && e.Rank != prev.Rank:
			return fmt.Errorf("tied stylists %s and %s have ranks %d and %d", prev.StylistID, e.StylistID, prev.Rank, e.Rank)
		case e.EloRating < prev.EloRating && e.Rank != i+1:
			return fmt.Errorf("stylist %s at position %d has rank %d", e.StylistID, i+1, e.Rank)
		}
	}
	return nil
}
