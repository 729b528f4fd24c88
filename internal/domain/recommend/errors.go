package recommend

import "errors"

// Sentinel kinds for recommendation errors.
var (
	ErrInvalidPage = errors.New("invalid page request")
	ErrCatalog     = errors.New("catalog lookup failed")
)
