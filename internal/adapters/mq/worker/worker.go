// Package worker runs the single writer that applies mutation commands one at
// a time. Serializing every mutation through one goroutine is what lets the
// applier read, modify and write records without locks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/intramurals/internal/adapters/mq/queue"
	"github.com/okian/intramurals/internal/domain/dedupe"
	"github.com/okian/intramurals/pkg/logger"
	"github.com/okian/intramurals/pkg/metrics"
)

// Applier executes one command against the writer-owned state.
type Applier interface {
	Apply(ctx context.Context, cmd queue.Command) (any, error)
}

// Queue is the subset of queue.Queue the writer needs.
type Queue interface {
	Enqueue(ctx context.Context, c queue.Command) bool
	Dequeue(ctx context.Context) <-chan queue.Command
}

// Worker processes commands serially.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Submit enqueues cmd and waits for its result.
	Submit(ctx context.Context, cmd queue.Command) (any, error)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker as the single writer.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	deduper dedupe.Deduper
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new writer with configuration options.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  applier,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "writer" {
		w.logger = w.logger.Named(w.name)
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper()
	}
	return w
}

// Run starts the writer loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			w.process(ctx, cmd)
		}
	}
}

// Submit enqueues cmd and blocks until the writer replies, ctx ends, or the
// writer stops. A full queue fails fast with ErrBackpressure.
func (w *InMemoryWorker) Submit(ctx context.Context, cmd queue.Command) (any, error) { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	select {
	case <-w.done:
		return nil, ErrStopped
	default:
	}
	if !w.queue.Enqueue(ctx, cmd) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBackpressure
	}
	select {
	case r := <-cmd.Done():
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", cmd.Kind, ctx.Err())
	case <-w.done:
		return nil, ErrStopped
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies a single command and replies to its submitter.
func (w *InMemoryWorker) process(ctx context.Context, cmd queue.Command) { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	defer func() {
		metrics.RecordCommandLatency(float64(time.Since(cmd.EnqueuedAt).Microseconds()) / 1000)
	}()

	if cmd.IdempotencyKey != "" {
		if prev, seen := w.deduper.Lookup(ctx, cmd.IdempotencyKey); seen {
			metrics.RecordCommandDuplicate()
			w.logger.Debug(ctx, "replayed idempotent command",
				logger.String("kind", cmd.Kind),
				logger.String("key", cmd.IdempotencyKey),
			)
			cmd.Reply(queue.Result{Value: prev})
			return
		}
	}

	value, err := w.safeApply(ctx, cmd)
	if err != nil {
		metrics.RecordCommandFailed(cmd.Kind)
		metrics.RecordErrorByComponent("writer", cmd.Kind)
		w.logger.Warn(ctx, "command rejected",
			logger.String("kind", cmd.Kind),
			logger.String("command_id", cmd.ID),
			logger.Error(err),
		)
		cmd.Reply(queue.Result{Err: err})
		return
	}

	if cmd.IdempotencyKey != "" {
		w.deduper.Record(ctx, cmd.IdempotencyKey, value)
	}
	metrics.RecordCommandProcessed(cmd.Kind)
	cmd.Reply(queue.Result{Value: value})
}

// errApplyPanic wraps a panic raised by the applier.
var errApplyPanic = errors.New("apply panicked")

func (w *InMemoryWorker) safeApply(ctx context.Context, cmd queue.Command) (value any, err error) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errApplyPanic, cmd.Kind, r)
		}
	}()
	return w.applier.Apply(ctx, cmd)
}
