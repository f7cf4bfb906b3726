package worker

import "errors"

// Sentinel kinds for writer errors.
var (
	ErrBackpressure = errors.New("command queue full")
	ErrStopped      = errors.New("writer stopped")
)
