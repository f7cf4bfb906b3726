package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	cmd := NewCommand("add_point_log", "payload")
	if !q.Enqueue(ctx, cmd) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != cmd.ID || got.Kind != "add_point_log" {
		t.Errorf("unexpected command %+v", got)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !q.Enqueue(ctx, NewCommand(fmt.Sprintf("k%d", i), nil)) {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if q.Enqueue(ctx, NewCommand("overflow", nil)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, NewCommand(fmt.Sprintf("k%d", i), i))
	}
	_ = q.Close()

	i := 0
	for c := range q.Dequeue(ctx) {
		if c.Payload.(int) != i {
			t.Errorf("expected payload %d, got %v", i, c.Payload)
		}
		i++
	}
	if i != 5 {
		t.Errorf("expected 5 commands, got %d", i)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(context.Background(), NewCommand("late", nil)) {
		t.Error("expected enqueue on closed queue to fail")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, NewCommand("cancelled", nil)) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestCommand_Reply(t *testing.T) {
	cmd := NewCommand("submit_results", nil).WithIdempotencyKey("abc")
	if cmd.IdempotencyKey != "abc" {
		t.Fatalf("idempotency key not set")
	}

	boom := errors.New("boom")
	cmd.Reply(Result{Value: 1})
	cmd.Reply(Result{Err: boom})

	select {
	case r := <-cmd.Done():
		if r.Value != 1 || r.Err != nil {
			t.Errorf("expected first reply to win, got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("no reply delivered")
	}

	var zero Command
	zero.Reply(Result{}) // must not panic or block
}
