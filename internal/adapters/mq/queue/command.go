package queue

import (
	"time"

	"github.com/google/uuid"
)

// Result is what the writer sends back for a command.
type Result struct {
	Value any
	Err   error
}

// Command is one mutation waiting for the single writer.
type Command struct {
	ID   string
	Kind string
	// Payload is interpreted by the writer according to Kind.
	Payload any
	// IdempotencyKey, when set, makes a retried command return the first result.
	IdempotencyKey string
	EnqueuedAt     time.Time

	reply chan Result
}

// NewCommand builds a command with a fresh id and a reply slot.
func NewCommand(kind string, payload any) Command {
	return Command{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now(),
		reply:      make(chan Result, 1),
	}
}

// WithIdempotencyKey returns a copy of c carrying key.
func (c Command) WithIdempotencyKey(key string) Command {
	c.IdempotencyKey = key
	return c
}

// Reply delivers the result without blocking; only the first reply is kept.
func (c Command) Reply(r Result) {
	if c.reply == nil {
		return
	}
	select {
	case c.reply <- r:
	default:
	}
}

// Done is closed over the reply slot; it yields exactly one Result.
func (c Command) Done() <-chan Result {
	return c.reply
}
