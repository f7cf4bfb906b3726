// Package dedupe remembers idempotency keys and the outcome recorded for them,
// so a retried mutation returns its first result instead of applying twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records idempotency keys with the value produced when they were first applied.
type Deduper interface {
	// Lookup returns the value recorded for key, if any.
	Lookup(ctx context.Context, key string) (any, bool)

	// Record stores value for key unless key is already present.
	// Returns true if key was already recorded (value is then ignored).
	Record(ctx context.Context, key string, value any) bool

	// Forget removes key, allowing it to be applied again.
	Forget(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key   string
	value any
}

// inMemoryDeduper is a bounded FIFO map: when full, the oldest key is evicted.
// maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.seen[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).value, true
}

func (d *inMemoryDeduper) Record(_ context.Context, key string, value any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, oldest.Value.(*entry).key)
			d.order.Remove(oldest)
		}
	}
	d.seen[key] = d.order.PushBack(&entry{key: key, value: value})
	return false
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
