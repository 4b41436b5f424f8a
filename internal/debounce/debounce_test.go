package debounce

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu      sync.Mutex
	batches map[string][][]string
}

func newCollector() *collector {
	return &collector{batches: make(map[string][][]string)}
}

func (c *collector) flush(key string, items []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches[key] = append(c.batches[key], items)
	return nil
}

func (c *collector) get(key string) [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[key]
}

func TestBatcherCoalesces(t *testing.T) {
	c := newCollector()
	b := New(
		WithDelay[string](20*time.Millisecond),
		WithKey(func(s string) string { return "k" }),
		WithFlush(c.flush),
	)
	defer b.Stop()

	b.Add("a")
	b.Add("b")
	b.Add("c")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.get("k"); len(got) == 1 {
			if len(got[0]) != 3 {
				t.Fatalf("batch size = %d, want 3", len(got[0]))
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("batch never delivered")
}

func TestBatcherZeroDelayDeliversInline(t *testing.T) {
	c := newCollector()
	b := New(WithFlush(c.flush))
	b.Add("x")
	if got := c.get("default"); len(got) != 1 || got[0][0] != "x" {
		t.Fatalf("inline delivery failed: %v", got)
	}
	if b.Pending() != 0 {
		t.Error("pending after inline delivery")
	}
}

func TestBatcherFlushAll(t *testing.T) {
	c := newCollector()
	b := New(
		WithDelay[string](time.Hour),
		WithKey(func(s string) string { return s[:1] }),
		WithFlush(c.flush),
	)
	defer b.Stop()

	b.Add("a1")
	b.Add("a2")
	b.Add("b1")
	if b.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", b.Pending())
	}
	b.FlushAll()
	if b.Pending() != 0 {
		t.Error("pending after FlushAll")
	}
	if len(c.get("a")) != 1 || len(c.get("a")[0]) != 2 {
		t.Errorf("key a batches = %v", c.get("a"))
	}
	if len(c.get("b")) != 1 {
		t.Errorf("key b batches = %v", c.get("b"))
	}
}

func TestBatcherStopDiscards(t *testing.T) {
	c := newCollector()
	b := New(WithDelay[string](time.Hour), WithFlush(c.flush))
	b.Add("x")
	b.Stop()
	b.Add("after-stop")
	if b.Pending() != 0 {
		t.Error("items accepted after Stop")
	}
}

func TestBatcherErrorHandler(t *testing.T) {
	boom := errors.New("boom")
	var mu sync.Mutex
	var seen error
	b := New(
		WithFlush(func(string, []string) error { return boom }),
		WithErrorHandler(func(err error, _ string, _ []string) {
			mu.Lock()
			seen = err
			mu.Unlock()
		}),
	)
	b.Add("x")
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(seen, boom) {
		t.Errorf("error handler saw %v", seen)
	}
}
