// Package events provides the realtime change feed: per-table subscriptions
// with an optional row filter, fed by committed database writes
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carematch/carematch/internal/logger"
)

// ChangeType is the kind of row change
type ChangeType string

const (
	// ChangeInsert is emitted when a row is created
	ChangeInsert ChangeType = "INSERT"
	// ChangeUpdate is emitted when a row is updated
	ChangeUpdate ChangeType = "UPDATE"
	// ChangeDelete is emitted when a row is deleted
	ChangeDelete ChangeType = "DELETE"
)

const (
	// FeedBufferSize is the buffer size of the feed's inbound channel
	FeedBufferSize = 256
	// SubscriptionBufferSize is the buffer size of each subscription channel
	SubscriptionBufferSize = 16
)

// Change describes one committed row change
type Change struct {
	Table string
	Type  ChangeType
	// Row holds the column values known at write time, stringified
	Row map[string]string
	At  time.Time
}

// Filter restricts a subscription to rows whose column equals a value
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses the "column=eq.value" filter syntax
func ParseFilter(s string) (*Filter, error) {
	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return nil, fmt.Errorf("invalid filter %q: expected column=eq.value", s)
	}
	value, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return nil, fmt.Errorf("invalid filter %q: only eq is supported", s)
	}
	return &Filter{Column: column, Value: value}, nil
}

// Eq builds a Filter for column = value
func Eq(column, value string) *Filter {
	return &Filter{Column: column, Value: value}
}

func (f *Filter) String() string {
	if f == nil {
		return "*"
	}
	return fmt.Sprintf("%s=eq.%s", f.Column, f.Value)
}

// Matches reports whether the change should be delivered under this filter.
// Rows that do not carry the filtered column are delivered: subscribers
// recompute from scratch, so an extra event only costs a query.
func (f *Filter) Matches(c Change) bool {
	if f == nil {
		return true
	}
	v, ok := c.Row[f.Column]
	if !ok || v == "" {
		return true
	}
	return v == f.Value
}

// Publisher is implemented by anything that accepts changes
type Publisher interface {
	Publish(Change)
}

// Subscriber is implemented by anything that hands out subscriptions
type Subscriber interface {
	Subscribe(table string, filter *Filter) *Subscription
}

// Subscription receives the changes of one table
type Subscription struct {
	C <-chan Change

	ch     chan Change
	table  string
	filter *Filter
	feed   *Feed
	once   sync.Once
}

// Close detaches the subscription from the feed and closes C
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.remove(s)
	})
}

// Feed fans out published changes to matching subscriptions
type Feed struct {
	in chan Change

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

var (
	_ Publisher  = (*Feed)(nil)
	_ Subscriber = (*Feed)(nil)
)

// NewFeed creates a feed. Call Start to begin delivering changes.
func NewFeed() *Feed {
	return &Feed{
		in:   make(chan Change, FeedBufferSize),
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in a table, optionally narrowed by filter
func (f *Feed) Subscribe(table string, filter *Filter) *Subscription {
	ch := make(chan Change, SubscriptionBufferSize)
	sub := &Subscription{C: ch, ch: ch, table: table, filter: filter, feed: f}

	f.mu.Lock()
	if f.subs[table] == nil {
		f.subs[table] = make(map[*Subscription]struct{})
	}
	f.subs[table][sub] = struct{}{}
	f.mu.Unlock()

	logger.Debugf("Subscribed to %s (%s)", table, filter)
	return sub
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subs, ok := f.subs[s.table]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(f.subs, s.table)
		}
	}
	close(s.ch)
}

// Publish queues a change for delivery. It never blocks: when the feed is
// saturated the change is dropped and a warning logged.
func (f *Feed) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	select {
	case f.in <- c:
	default:
		logger.Warnf("Change feed full, dropping %s on %s", c.Type, c.Table)
	}
}

// Start runs the delivery loop until ctx is done
func (f *Feed) Start(ctx context.Context) {
	go f.run(ctx)
	logger.Info("Started change feed")
}

func (f *Feed) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping change feed")
			return
		case c := <-f.in:
			f.deliver(c)
		}
	}
}

func (f *Feed) deliver(c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[c.Table] {
		if !sub.filter.Matches(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			// a pending change already guarantees the subscriber wakes up
		}
	}
}

// Subscribers returns the number of live subscriptions on a table
func (f *Feed) Subscribers(table string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[table])
}
