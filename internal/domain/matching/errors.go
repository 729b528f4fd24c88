package matching

import "errors"

// Sentinel kinds for matching input errors.
var (
	ErrDuplicateID = errors.New("duplicate participant id")
	ErrMissingID   = errors.New("missing participant id")
)
