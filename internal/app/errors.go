package service

import (
	"errors"

	"github.com/okian/intramurals/internal/adapters/mq/worker"
)

// Sentinel error kinds returned by the service.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = worker.ErrBackpressure
)
