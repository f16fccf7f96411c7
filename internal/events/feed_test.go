package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for change")
	}
	return Change{}
}

func assertNoChange(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case c := <-sub.C:
		t.Fatalf("unexpected change delivered: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("conversation_id=eq.abc")
	require.NoError(t, err)
	assert.Equal(t, "conversation_id", f.Column)
	assert.Equal(t, "abc", f.Value)
	assert.Equal(t, "conversation_id=eq.abc", f.String())

	for _, bad := range []string{"", "conversation_id", "=eq.x", "id=gt.5"} {
		_, err := ParseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilterMatches(t *testing.T) {
	f := Eq("freelancer_id", "f1")
	assert.True(t, f.Matches(Change{Row: map[string]string{"freelancer_id": "f1"}}))
	assert.False(t, f.Matches(Change{Row: map[string]string{"freelancer_id": "f2"}}))
	assert.True(t, f.Matches(Change{Row: map[string]string{"id": "x"}}), "rows without the column are delivered")

	var none *Filter
	assert.True(t, none.Matches(Change{}))
}

func TestFeed(t *testing.T) {
	t.Run("delivers to table subscribers", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed := NewFeed()
		feed.Start(ctx)

		messages := feed.Subscribe("messages", nil)
		defer messages.Close()
		jobs := feed.Subscribe("job_requests", nil)
		defer jobs.Close()

		feed.Publish(Change{Table: "messages", Type: ChangeInsert, Row: map[string]string{"id": "m1"}})

		c := receive(t, messages)
		assert.Equal(t, ChangeInsert, c.Type)
		assert.Equal(t, "m1", c.Row["id"])
		assert.False(t, c.At.IsZero())
		assertNoChange(t, jobs)
	})

	t.Run("applies row filters", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed := NewFeed()
		feed.Start(ctx)

		mine := feed.Subscribe("job_candidate_notifications", Eq("freelancer_id", "f1"))
		defer mine.Close()

		feed.Publish(Change{Table: "job_candidate_notifications", Type: ChangeInsert, Row: map[string]string{"freelancer_id": "f2"}})
		feed.Publish(Change{Table: "job_candidate_notifications", Type: ChangeInsert, Row: map[string]string{"freelancer_id": "f1"}})

		c := receive(t, mine)
		assert.Equal(t, "f1", c.Row["freelancer_id"])
		assertNoChange(t, mine)
	})

	t.Run("close detaches and closes channel", func(t *testing.T) {
		feed := NewFeed()
		sub := feed.Subscribe("messages", nil)
		assert.Equal(t, 1, feed.Subscribers("messages"))

		sub.Close()
		sub.Close()
		assert.Equal(t, 0, feed.Subscribers("messages"))

		_, ok := <-sub.C
		assert.False(t, ok)
	})

	t.Run("publish never blocks", func(t *testing.T) {
		feed := NewFeed()
		done := make(chan struct{})
		go func() {
			for i := 0; i < FeedBufferSize*2; i++ {
				feed.Publish(Change{Table: "messages", Type: ChangeUpdate})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Publish blocked on a feed that was never started")
		}
	})

	t.Run("slow subscriber does not stall others", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed := NewFeed()
		feed.Start(ctx)

		slow := feed.Subscribe("messages", nil)
		defer slow.Close()
		fast := feed.Subscribe("messages", nil)
		defer fast.Close()

		for i := 0; i < SubscriptionBufferSize*2; i++ {
			feed.Publish(Change{Table: "messages", Type: ChangeInsert})
			receive(t, fast)
		}
		assert.Len(t, slow.C, SubscriptionBufferSize)
	})
}
