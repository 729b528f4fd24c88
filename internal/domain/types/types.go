// Package types contains common types used across the application
package types

// Entry is one row of the stylist Elo leaderboard.
type Entry struct {
	Rank      int     `json:"rank"`
	StylistID string  `json:"stylistId"`
	EloRating float64 `json:"eloRating"`
}
