// Package elo computes Elo rating updates for head-to-head stylist outcomes.
package elo

import "math"

// Default rating configuration constants.
const (
	DefaultKFactor = 32.0
	scaleFactor    = 400.0
)

// Option applies a configuration option to the Rater.
type Option func(*Rater)

// WithKFactor sets the maximum rating change per outcome.
func WithKFactor(k float64) Option {
	return func(r *Rater) {
		if k > 0 && !math.IsInf(k, 0) {
			r.k = k
		}
	}
}

// Rater applies the Elo update rule with a fixed K factor.
// It is stateless and safe for concurrent use.
type Rater struct {
	k float64
}

// NewRater creates a Rater with configuration options.
func NewRater(opts ...Option) *Rater {
	r := &Rater{k: DefaultKFactor}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// KFactor returns the configured K factor.
func (r *Rater) KFactor() float64 { return r.k }

// Expected returns the expected score of self against opponent.
func Expected(self, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-self)/scaleFactor))
}

// Update returns self's new rating after an outcome against opponent.
// A winner always moves strictly up and a loser strictly down, even when the
// gap is so large that the raw delta is lost to float precision.
func (r *Rater) Update(self, opponent float64, selfWon bool) float64 {
	d := (opponent - self) / scaleFactor
	var next float64
	if selfWon {
		// 1 - Expected, written to avoid cancellation for big favourites
		next = self + r.k/(1+math.Pow(10, -d))
		if next <= self {
			next = math.Nextafter(self, math.Inf(1))
		}
		return next
	}
	next = self - r.k*Expected(self, opponent)
	if next >= self {
		next = math.Nextafter(self, math.Inf(-1))
	}
	return next
}

// Apply updates both sides of one outcome from their pre-update ratings.
func (r *Rater) Apply(winner, loser float64) (newWinner, newLoser float64) {
	return r.Update(winner, loser, true), r.Update(loser, winner, false)
}
