package counters

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carematch/carematch/internal/events"
)

func startFeed(t *testing.T) *events.Feed {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	feed := events.NewFeed()
	feed.Start(ctx)
	return feed
}

func TestCounterRecomputesOnChange(t *testing.T) {
	feed := startFeed(t)
	var value, calls atomic.Int64
	value.Store(2)
	c := NewCounter("unread", func(context.Context) (int, error) {
		calls.Add(1)
		return int(value.Load()), nil
	}, feed, Watch{Table: "messages"})

	c.Start(context.Background())
	defer c.Stop()
	assert.Equal(t, 2, c.Value())
	assert.Equal(t, 2, <-c.Updates())

	value.Store(5)
	feed.Publish(events.Change{Table: "messages", Type: events.ChangeInsert})

	select {
	case v := <-c.Updates():
		assert.Equal(t, 5, v)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recompute")
	}
	assert.Equal(t, 5, c.Value())
	assert.EqualValues(t, 2, calls.Load())
}

func TestCounterIgnoresFilteredChanges(t *testing.T) {
	feed := startFeed(t)
	var calls atomic.Int64
	c := NewCounter("schedule", func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, feed, Watch{Table: "job_candidate_notifications", Filter: events.Eq("freelancer_id", "me")})

	c.Start(context.Background())
	defer c.Stop()
	require.Equal(t, 1, c.Value())

	feed.Publish(events.Change{Table: "job_candidate_notifications", Row: map[string]string{"freelancer_id": "someone-else"}})
	feed.Publish(events.Change{Table: "job_requests", Row: map[string]string{"freelancer_id": "me"}})
	feed.Publish(events.Change{Table: "job_candidate_notifications", Row: map[string]string{"freelancer_id": "me"}})

	require.Eventually(t, func() bool { return c.Value() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCounterKeepsLastValueOnError(t *testing.T) {
	feed := startFeed(t)
	var fail atomic.Bool
	var calls atomic.Int64
	c := NewCounter("pending", func(context.Context) (int, error) {
		calls.Add(1)
		if fail.Load() {
			return 0, errors.New("database unavailable")
		}
		return 3, nil
	}, feed, Watch{Table: "job_requests"})

	c.Start(context.Background())
	defer c.Stop()
	require.Equal(t, 3, c.Value())

	fail.Store(true)
	feed.Publish(events.Change{Table: "job_requests"})
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, c.Value())
}

func TestCounterStopResetsAndUnsubscribes(t *testing.T) {
	feed := startFeed(t)
	c := NewCounter("unread", func(context.Context) (int, error) { return 7, nil },
		feed, Watch{Table: "messages"}, Watch{Table: "conversations"})

	c.Start(context.Background())
	c.Start(context.Background())
	assert.Equal(t, 7, c.Value())
	assert.Equal(t, 1, feed.Subscribers("messages"))
	assert.Equal(t, 1, feed.Subscribers("conversations"))

	c.Stop()
	assert.Equal(t, 0, c.Value())
	assert.Equal(t, 0, feed.Subscribers("messages"))
	assert.Equal(t, 0, feed.Subscribers("conversations"))

	// stopping twice is harmless
	c.Stop()
}

func TestOfferReplacesUnreadValue(t *testing.T) {
	ch := make(chan int, 1)
	offer(ch, 1)
	offer(ch, 2)
	assert.Equal(t, 2, <-ch)
}
