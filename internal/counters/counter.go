// Package counters keeps aggregate badge counts fresh by recomputing them on every change
package counters

import (
	"context"
	"sync"

	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/logger"
)

// QueryFunc computes the current value of a counter from scratch
type QueryFunc func(ctx context.Context) (int, error)

// Watch names a table, and optionally a row filter, whose changes trigger a recompute
type Watch struct {
	Table  string
	Filter *events.Filter
}

// Counter is a single aggregate kept fresh by a change feed.
// Its zero value is not usable; create one with NewCounter.
type Counter struct {
	name    string
	query   QueryFunc
	watches []Watch
	feed    events.Subscriber

	mu      sync.RWMutex
	value   int
	running bool
	cancel  context.CancelFunc
	subs    []*events.Subscription
	wg      sync.WaitGroup

	updates chan int
}

// NewCounter creates a counter that recomputes query whenever one of watches changes
func NewCounter(name string, query QueryFunc, feed events.Subscriber, watches ...Watch) *Counter {
	return &Counter{
		name:    name,
		query:   query,
		watches: watches,
		feed:    feed,
		updates: make(chan int, 1),
	}
}

// Name returns the counter name
func (c *Counter) Name() string {
	return c.name
}

// Value returns the last computed value
func (c *Counter) Value() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Updates delivers the latest value after every change. Intermediate values may be skipped.
func (c *Counter) Updates() <-chan int {
	return c.updates
}

// Start subscribes to the watched tables, computes the value once and keeps
// recomputing it until Stop is called or ctx is done. Starting twice is a no-op.
func (c *Counter) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	// subscribe before the first computation so no change slips in between
	c.subs = make([]*events.Subscription, 0, len(c.watches))
	for _, w := range c.watches {
		c.subs = append(c.subs, c.feed.Subscribe(w.Table, w.Filter))
	}
	subs := c.subs
	c.mu.Unlock()

	trigger := make(chan struct{}, 1)
	for _, sub := range subs {
		c.wg.Add(1)
		go c.forward(ctx, sub, trigger)
	}

	c.recompute(ctx)

	c.wg.Add(1)
	go c.loop(ctx, trigger)
}

func (c *Counter) forward(ctx context.Context, sub *events.Subscription, trigger chan<- struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

func (c *Counter) loop(ctx context.Context, trigger <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			c.recompute(ctx)
		}
	}
}

func (c *Counter) recompute(ctx context.Context) {
	v, err := c.query(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf("Failed to recompute %s counter, keeping last value: %v", c.name, err)
		}
		return
	}
	c.set(v)
}

func (c *Counter) set(v int) {
	c.mu.Lock()
	changed := c.value != v
	c.value = v
	c.mu.Unlock()
	if changed {
		offer(c.updates, v)
	}
}

// Stop closes every subscription, waits for the counter goroutines and resets the value to 0
func (c *Counter) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	c.wg.Wait()
	c.set(0)
}

// offer replaces any unread value in ch with v
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
