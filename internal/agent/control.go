package agent

import "sync"

// Control exposes the pause/stop/cancel flags an agent loop consults
// between suspension points. Signal handlers and UI surfaces flip the
// flags; the loop polls them, so reaction latency is one event.
type Control struct {
	mu        sync.Mutex
	paused    bool
	stopped   bool
	cancelled bool
	resume    chan struct{}
}

// NewControl returns a running (unpaused) control manager.
func NewControl() *Control {
	return &Control{resume: make(chan struct{})}
}

// Pause requests the loop hold before its next step.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume releases a paused loop.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resume)
	c.resume = make(chan struct{})
}

// Stop requests a graceful exit after the current step.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// Cancel requests an immediate abort; the loop closes its stream and
// flushes.
func (c *Control) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	if c.paused {
		c.paused = false
		close(c.resume)
		c.resume = make(chan struct{})
	}
}

// Paused reports the pause flag.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stopped reports the stop flag.
func (c *Control) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Cancelled reports the cancel flag.
func (c *Control) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// resumeChan returns the channel a paused loop waits on.
func (c *Control) resumeChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resume
}
