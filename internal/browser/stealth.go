package browser

import (
	"context"
	"math/rand"
	"time"
)

// SleepFunc waits for d or until ctx is done. Components take one so tests can skip the
// human-paced delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// RandomDelay waits for a random duration between min and max milliseconds
func RandomDelay(ctx context.Context, sleep SleepFunc, minMs, maxMs int) error {
	return sleep(ctx, Jitter(time.Duration(minMs)*time.Millisecond, time.Duration(maxMs)*time.Millisecond))
}

// HumanScroll scrolls down in uneven steps, then back up a little.
func HumanScroll(ctx context.Context, page Page, sleep SleepFunc) error {
	for i := 0; i < 4; i++ {
		if err := page.Scroll(300 + rand.Intn(400)); err != nil {
			return err
		}
		if err := RandomDelay(ctx, sleep, 500, 1500); err != nil {
			return err
		}
	}
	return page.Scroll(-200)
}

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

func randomUserAgent(pool []string) string {
	if len(pool) == 0 {
		pool = desktopUserAgents
	}
	return pool[rand.Intn(len(pool))]
}

// randomViewport picks a common laptop/desktop size with a few pixels of noise.
func randomViewport() Viewport {
	sizes := []Viewport{{1366, 768}, {1440, 900}, {1536, 864}, {1920, 1080}, {1280, 800}}
	v := sizes[rand.Intn(len(sizes))]
	v.Width += rand.Intn(24)
	v.Height += rand.Intn(24)
	return v
}
