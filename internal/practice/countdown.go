package practice

import (
	"context"
	"sync"
	"time"
)

// Tick is one countdown beat. Run identifies the countdown start that
// produced it so beats still in flight after a stop can be recognised.
type Tick struct {
	Run uint64
}

// Countdown is a cancellable periodic task that sends a Tick into a sink
// every interval until stopped.
type Countdown struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCountdown(interval time.Duration) *Countdown {
	return &Countdown{interval: interval}
}

// Start launches the ticking goroutine. It is a no-op while already running.
func (c *Countdown) Start(ctx context.Context, run uint64, sink chan<- Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case sink <- Tick{Run: run}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// Stop cancels the goroutine and waits for it to exit. Safe to call twice.
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

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}
