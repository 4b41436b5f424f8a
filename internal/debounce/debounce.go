// Package debounce batches bursts of work behind a trailing-edge timer.
// The session saver uses it to coalesce rapid message updates into single
// disk writes without dropping anything on shutdown.
package debounce

import (
	"sync"
	"time"
)

type buffer[T any] struct {
	items []T
	timer *time.Timer
}

// Batcher groups items by key and delivers each group after the key has
// been quiet for the configured delay. A zero delay delivers immediately.
type Batcher[T any] struct {
	mu      sync.Mutex
	buffers map[string]*buffer[T]
	stopped bool

	delay   time.Duration
	keyFn   func(item T) string
	flushFn func(key string, items []T) error
	errFn   func(err error, key string, items []T)
}

// Option configures a Batcher.
type Option[T any] func(*Batcher[T])

// WithDelay sets the quiet period before a group is delivered.
func WithDelay[T any](d time.Duration) Option[T] {
	return func(b *Batcher[T]) {
		if d < 0 {
			d = 0
		}
		b.delay = d
	}
}

// WithKey sets the grouping function. Without one, all items share a key.
func WithKey[T any](fn func(item T) string) Option[T] {
	return func(b *Batcher[T]) { b.keyFn = fn }
}

// WithFlush sets the delivery callback.
func WithFlush[T any](fn func(key string, items []T) error) Option[T] {
	return func(b *Batcher[T]) { b.flushFn = fn }
}

// WithErrorHandler sets an optional callback for delivery errors.
func WithErrorHandler[T any](fn func(err error, key string, items []T)) Option[T] {
	return func(b *Batcher[T]) { b.errFn = fn }
}

// New creates a Batcher.
func New[T any](opts ...Option[T]) *Batcher[T] {
	b := &Batcher[T]{buffers: make(map[string]*buffer[T])}
	for _, opt := range opts {
		opt(b)
	}
	if b.keyFn == nil {
		b.keyFn = func(T) string { return "default" }
	}
	if b.flushFn == nil {
		b.flushFn = func(string, []T) error { return nil }
	}
	return b
}

// Add enqueues an item, restarting its key's quiet timer.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	key := b.keyFn(item)

	if b.delay <= 0 {
		b.mu.Unlock()
		b.deliver(key, []T{item})
		return
	}

	buf, ok := b.buffers[key]
	if !ok {
		buf = &buffer[T]{}
		b.buffers[key] = buf
	}
	buf.items = append(buf.items, item)
	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(b.delay, func() { b.Flush(key) })
	b.mu.Unlock()
}

// Flush delivers any pending items for key immediately.
func (b *Batcher[T]) Flush(key string) {
	b.mu.Lock()
	items := b.takeLocked(key)
	b.mu.Unlock()
	b.deliver(key, items)
}

// FlushAll delivers every pending group. Used on shutdown and interrupt.
func (b *Batcher[T]) FlushAll() {
	b.mu.Lock()
	pending := make(map[string][]T, len(b.buffers))
	for key := range b.buffers {
		pending[key] = b.takeLocked(key)
	}
	b.mu.Unlock()
	for key, items := range pending {
		b.deliver(key, items)
	}
}

// Stop cancels all timers and drops pending items. Call FlushAll first if
// the items matter.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	for key, buf := range b.buffers {
		if buf.timer != nil {
			buf.timer.Stop()
		}
		delete(b.buffers, key)
	}
}

// Pending returns the total number of undelivered items.
func (b *Batcher[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, buf := range b.buffers {
		n += len(buf.items)
	}
	return n
}

func (b *Batcher[T]) takeLocked(key string) []T {
	buf, ok := b.buffers[key]
	if !ok {
		return nil
	}
	if buf.timer != nil {
		buf.timer.Stop()
	}
	delete(b.buffers, key)
	return buf.items
}

func (b *Batcher[T]) deliver(key string, items []T) {
	if len(items) == 0 {
		return
	}
	if err := b.flushFn(key, items); err != nil && b.errFn != nil {
		b.errFn(err, key, items)
	}
}
