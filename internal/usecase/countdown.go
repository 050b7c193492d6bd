package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCountdownInterval is how often the countdown text is recomputed
const DefaultCountdownInterval = time.Second

// FormatRemaining renders d as H:MM:SS, flooring to whole seconds.
// Negative durations render as 0:00:00.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// TargetFunc returns the instant the countdown runs towards
type TargetFunc func(now time.Time) time.Time

// Countdown keeps a display string of the time left until the next shop
// refresh. It only reads the target; it never loads shop data.
type Countdown struct {
	target   TargetFunc
	interval time.Duration
	clock    Clock

	value atomic.Value

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCountdown creates a countdown towards target
func NewCountdown(target TargetFunc, interval time.Duration, clock Clock) *Countdown {
	if clock == nil {
		clock = SystemClock()
	}
	if interval <= 0 {
		interval = DefaultCountdownInterval
	}
	c := &Countdown{target: target, interval: interval, clock: clock}
	c.value.Store(FormatRemaining(0))
	return c
}

// TimeUntilRefresh returns the remaining time at now, never negative
func (c *Countdown) TimeUntilRefresh(now time.Time) time.Duration {
	d := c.target(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Refresh recomputes the display value from the clock and returns it
func (c *Countdown) Refresh() string {
	text := FormatRemaining(c.TimeUntilRefresh(c.clock.Now()))
	c.value.Store(text)
	return text
}

// Value returns the last computed display value
func (c *Countdown) Value() string {
	return c.value.Load().(string)
}

// Start recomputes the value every interval until ctx is done or Stop is called
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.Refresh()

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Refresh()
			}
		}
	}(c.done)
}

// Stop halts the ticker and waits for it to exit
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
