package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrSelfMatch        = errors.New("outcome winner and loser are the same stylist")
	ErrRetriesExhausted = errors.New("rating update retries exhausted")
)
