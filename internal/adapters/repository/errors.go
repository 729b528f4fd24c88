package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("stylist not found")
	ErrInvalidLimit    = errors.New("invalid leaderboard limit")
	ErrVersionConflict = errors.New("rating version conflict")
	ErrInvalidStylist  = errors.New("invalid stylist")
)
