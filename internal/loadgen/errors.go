package loadgen

import "errors"

var (
	// ErrUnexpectedStatus is returned when the service answers with a status
	// the client does not expect for that call.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrVerification is returned when the service state after a run breaks
	// an invariant the run checks.
	ErrVerification = errors.New("verification failed")
	// ErrNotSettled is returned when queued outcomes are still pending after
	// the settle timeout.
	ErrNotSettled = errors.New("outcomes not settled")
)
