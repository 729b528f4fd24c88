package rolegrant

import "errors"

// Sentinel errors for role grants.
var (
	ErrMissingUser = errors.New("missing user id")
	ErrBadStatus   = errors.New("identity service rejected grant")
)
