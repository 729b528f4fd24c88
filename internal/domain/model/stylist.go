// Package model contains domain models passed between layers.
package model

// DefaultEloRating is the rating assigned to a stylist with no match history.
const DefaultEloRating = 1500.0

// StylistCandidate is a stylist as seen by the matching engine.
// Only the rating updater changes EloRating; Version counts persisted updates
// and backs optimistic concurrency in the stores. Rated marks EloRating as
// supplied; a new stylist that is not Rated starts at the store default.
type StylistCandidate struct {
	ID          string
	EloRating   float64
	Rated       bool
	Latitude    float64
	Longitude   float64
	Specialties []string
	Version     int64
}
