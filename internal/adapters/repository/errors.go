package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("record store closed")
	ErrCorrupt  = errors.New("record could not be decoded")
)
