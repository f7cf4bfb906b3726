package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrNotFound = errors.New("not found")
)
