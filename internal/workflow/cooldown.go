package workflow

import (
	"context"
	"sync"
	"time"

	"go-outreach-automation/internal/browser"
)

// Cooldown spaces the starts of discovery runs process-wide. Each caller reserves the
// next free slot under the lock and then sleeps outside it, so concurrent callers queue
// up one window apart instead of all waking at once.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	next   time.Time

	now   func() time.Time
	sleep browser.SleepFunc
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, now: time.Now, sleep: browser.Sleep}
}

// Wait blocks until the caller may start and returns the start time.
func (c *Cooldown) Wait(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	now := c.now()
	start := now
	if c.next.After(now) {
		start = c.next
	}
	c.next = start.Add(c.window)
	c.mu.Unlock()

	if d := start.Sub(now); d > 0 {
		if err := c.sleep(ctx, d); err != nil {
			c.release(start)
			return time.Time{}, err
		}
	}
	return start, nil
}

// release gives back an abandoned slot. Only the last reservation can be returned;
// callers queued behind it keep the starts they were promised.
func (c *Cooldown) release(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next.Equal(start.Add(c.window)) {
		c.next = start
	}
}

// Remaining is how long a caller arriving now would wait.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.next.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}
