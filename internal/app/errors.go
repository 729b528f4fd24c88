package service

import "errors"

// Sentinel errors for the service lifecycle.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrUnknownStore = errors.New("unknown store")
	ErrSeed         = errors.New("seed failed")
)
