// Package repository holds the stylist, offering and rating stores.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/types"
)

// Rating is the persisted Elo state of a stylist. Version increases by one
// on every successful write.
type Rating struct {
	StylistID string
	EloRating float64
	Version   int64
}

// RatingUpdate is one row of a conditional rating write.
type RatingUpdate struct {
	StylistID       string
	ExpectedVersion int64
	EloRating       float64
}

// Catalog is the read-only offering lookup used by recommendations.
type Catalog interface {
	// FindOfferingsByStyleName returns offerings whose style matches name exactly.
	FindOfferingsByStyleName(ctx context.Context, name string) ([]model.ServiceOffering, error)
	// FindAllOfferings returns every offering in the catalog.
	FindAllOfferings(ctx context.Context) ([]model.ServiceOffering, error)
}

// RatingStore reads and conditionally writes stylist ratings.
type RatingStore interface {
	// GetRating returns ErrNotFound if the stylist is unknown.
	GetRating(ctx context.Context, stylistID string) (Rating, error)
	// CompareAndSwapRatings stores every update only if each stylist is
	// still at its expected version. On ErrVersionConflict or ErrNotFound
	// nothing is written. Results are returned in update order.
	CompareAndSwapRatings(ctx context.Context, updates ...RatingUpdate) ([]Rating, error)
}

// Leaderboard ranks stylists by Elo descending, ties broken by ID ascending.
type Leaderboard interface {
	// TopN returns the top-n stylists. n must be at least 1.
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	// Rank returns ErrNotFound if the stylist is unknown.
	Rank(ctx context.Context, stylistID string) (types.Entry, error)
	Count(ctx context.Context) int
}

// Store is the full persistence surface the service runs against.
type Store interface {
	Catalog
	RatingStore
	Leaderboard

	// UpsertStylist registers a stylist or refreshes its profile. An existing
	// rating and version are kept.
	UpsertStylist(ctx context.Context, s model.StylistCandidate) error
	// AddOffering stores an offering and its stylist. It reports whether this
	// is the stylist's first offering.
	AddOffering(ctx context.Context, o model.ServiceOffering) (bool, error)
	// OfferingCount returns the number of offerings in the catalog.
	OfferingCount(ctx context.Context) int

	Close() error
}

// checkUpdates rejects a write that names a stylist twice.
func checkUpdates(updates []RatingUpdate) error {
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if u.StylistID == "" {
			return fmt.Errorf("%w: id is required", ErrInvalidStylist)
		}
		if _, dup := seen[u.StylistID]; dup {
			return fmt.Errorf("%w: %s updated twice", ErrInvalidStylist, u.StylistID)
		}
		seen[u.StylistID] = struct{}{}
	}
	return nil
}
