package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/counters"
	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/types"
)

// CountsEvent is the SSE event name carrying a types.Counts payload
const CountsEvent = "counts"

// DefaultKeepAlive is how often an idle counters stream sends a comment line
const DefaultKeepAlive = 15 * time.Second

// CounterHandler serves the aggregate badge counts of the caller
type CounterHandler struct {
	base      context.Context
	queries   *counters.Queries
	feed      events.Subscriber
	keepAlive time.Duration
}

// NewCounterHandler creates a new counter handler instance.
// Open streams end when base is cancelled.
func NewCounterHandler(base context.Context, queries *counters.Queries, feed events.Subscriber) *CounterHandler {
	return &CounterHandler{
		base:      base,
		queries:   queries,
		feed:      feed,
		keepAlive: DefaultKeepAlive,
	}
}

// GetCounters computes the caller's counts once
func (h *CounterHandler) GetCounters(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ErrInvalidInput(ErrMsgNoUser))
	}

	counts, err := h.compute(c.Context(), user)
	if err != nil {
		logger.Errorf("%s for %s: %v", ErrMsgCountersFailed, user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgCountersFailed))
	}
	return c.JSON(counts)
}

func (h *CounterHandler) compute(ctx context.Context, user *auth.User) (types.Counts, error) {
	var counts types.Counts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts.UnreadMessages, err = h.queries.UnreadMessages(ctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		counts.PendingConfirmations, err = h.queries.PendingConfirmations(ctx, user.ID, user.Role)
		return err
	})
	g.Go(func() (err error) {
		counts.ScheduleChanges, err = h.queries.ScheduleChanges(ctx, user.ID)
		return err
	})
	return counts, g.Wait()
}

// StreamCounters pushes the caller's counts as server-sent events whenever they change
func (h *CounterHandler) StreamCounters(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ErrInvalidInput(ErrMsgNoUser))
	}

	ctx, cancel := context.WithCancel(h.base)
	set := counters.NewSet(h.queries, h.feed, user.ID, user.Role)
	if err := set.Start(ctx); err != nil {
		cancel()
		return c.Status(fiber.StatusUnauthorized).JSON(types.ErrInvalidInput(err.Error()))
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger.Debugf("Counters stream opened for %s", user.ID)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer set.Stop()
		if err := writeStream(ctx, w, set.Updates(), h.keepAlive); err != nil {
			logger.Debugf("Counters stream for %s closed: %v", user.ID, err)
		}
	}))
	return nil
}

// writeStream writes every update as a counts event until ctx ends or the client goes away
func writeStream(ctx context.Context, w *bufio.Writer, updates <-chan types.Counts, keepAlive time.Duration) error {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case counts := <-updates:
			data, err := json.Marshal(counts)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", CountsEvent, data); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}
