// Package window follows the confirmation window of one job from the client side:
// it polls the confirmed candidates, counts the deadline down and issues the
// select, decline and restart actions.
package window

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/api/v1/client"
)

const (
	// DefaultPollInterval is how often an open window refetches its candidates
	DefaultPollInterval = 3 * time.Second
	// DefaultTickInterval is the countdown resolution
	DefaultTickInterval = time.Second
	// DefaultWindow is assumed after a restart whose response carries no deadline
	DefaultWindow = 90 * time.Second
)

var (
	// ErrRunning is returned by Run when the controller is already running
	ErrRunning = errors.New("controller is already running")
	// ErrStopped is returned by Run and Fetch once the controller has stopped
	ErrStopped = errors.New("controller was stopped")
)

// API is the subset of the carematch API the controller calls
type API interface {
	GetConfirmed(ctx context.Context, jobID string) (types.ConfirmedResponse, error)
	SelectFreelancer(ctx context.Context, jobID, freelancerID string) (types.SelectResponse, error)
	DeclineFreelancer(ctx context.Context, jobID, freelancerID string) error
	RestartSearch(ctx context.Context, jobID string) (types.RestartResponse, error)
}

// Options configures a Controller
type Options struct {
	JobID        string
	API          API
	Clock        clock.Clock
	PollInterval time.Duration
	TickInterval time.Duration
	// OnChange is called after every observable change, outside the controller's lock
	OnChange func(Snapshot)
}

// Controller is the client-side state machine of a job's confirmation window
type Controller struct {
	jobID    string
	api      API
	clock    clock.Clock
	poll     time.Duration
	tick     time.Duration
	onChange func(Snapshot)

	mu         sync.Mutex
	state      State
	deadline   time.Time
	remaining  int
	candidates []types.Candidate
	declined   map[string]struct{}
	generation uint64
	running    bool
	stopped    bool
}

// NewController creates a controller for one job
func NewController(opts Options) (*Controller, error) {
	if opts.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("api is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	return &Controller{
		jobID:    opts.JobID,
		api:      opts.API,
		clock:    opts.Clock,
		poll:     opts.PollInterval,
		tick:     opts.TickInterval,
		onChange: opts.OnChange,
		state:    Open,
		declined: make(map[string]struct{}),
	}, nil
}

// Run fetches once, then polls and counts down until ctx is done.
// It returns early with the error when the session is missing or rejected.
// Results of requests still in flight when Run returns are discarded.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.stopped:
		c.mu.Unlock()
		return ErrStopped
	case c.running:
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.stopped = true
		c.mu.Unlock()
	}()

	pollTicker := c.clock.Ticker(c.poll)
	countdown := c.clock.Ticker(c.tick)
	defer pollTicker.Stop()
	defer countdown.Stop()

	if err := c.refresh(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.pollLoop(gctx, pollTicker.C)
	})
	g.Go(func() error {
		c.countdownLoop(gctx, countdown.C)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (c *Controller) pollLoop(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			if c.State() == Ended {
				continue
			}
			if err := c.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// refresh fetches once. Failures are logged and left to the next poll,
// except a missing or rejected session which no retry can fix.
func (c *Controller) refresh(ctx context.Context) error {
	err := c.Fetch(ctx)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if client.IsUnauthorized(err) {
		logger.Errorf("Stopped following job %s: %v", c.jobID, err)
		return err
	}
	logger.Warnf("Failed to fetch confirmed candidates for job %s: %v", c.jobID, err)
	return nil
}

func (c *Controller) countdownLoop(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			c.mu.Lock()
			changed := c.countDown()
			snap := c.snapshot()
			c.mu.Unlock()
			if changed {
				c.notify(snap)
			}
		}
	}
}

// countDown recomputes remaining from the local deadline. Caller holds mu.
func (c *Controller) countDown() bool {
	if c.state == Ended || c.deadline.IsZero() {
		return false
	}
	remaining := secondsUntil(c.deadline, c.clock.Now())
	if remaining == c.remaining {
		return false
	}
	c.remaining = remaining
	if remaining == 0 {
		c.state = Ended
		logger.Debugf("Confirmation window of job %s ended", c.jobID)
	}
	return true
}

// Fetch reads the confirmed candidates and the authoritative deadline.
// Locally declined candidates are left out and open-job acceptances sort first.
func (c *Controller) Fetch(ctx context.Context) error {
	c.mu.Lock()
	generation := c.generation
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	resp, err := c.api.GetConfirmed(ctx, c.jobID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if generation != c.generation || ctx.Err() != nil {
		c.mu.Unlock()
		logger.Debugf("Discarding stale candidates of job %s", c.jobID)
		return nil
	}

	candidates := make([]types.Candidate, 0, len(resp.Freelancers))
	for _, cand := range resp.Freelancers {
		if _, ok := c.declined[cand.FreelancerID]; !ok {
			candidates = append(candidates, cand)
		}
	}
	slices.SortStableFunc(candidates, func(a, b types.Candidate) int {
		switch {
		case a.IsOpenJobAccepted == b.IsOpenJobAccepted:
			return 0
		case a.IsOpenJobAccepted:
			return -1
		default:
			return 1
		}
	})
	c.candidates = candidates

	if resp.ConfirmEndsAt != nil {
		c.deadline = *resp.ConfirmEndsAt
	} else {
		c.deadline = time.Time{}
	}
	if c.state == Open {
		if c.deadline.IsZero() {
			c.remaining = 0
		} else {
			c.remaining = secondsUntil(c.deadline, c.clock.Now())
		}
		if c.remaining == 0 {
			c.state = Ended
		}
	}
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Select picks a candidate and returns the id of the conversation opened with them.
// Local state is not touched.
func (c *Controller) Select(ctx context.Context, freelancerID string) (string, error) {
	resp, err := c.api.SelectFreelancer(ctx, c.jobID, freelancerID)
	if err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// Decline hides the candidate right away and asks the server to decline them.
// On failure the candidate is put back where it was and the error is returned.
func (c *Controller) Decline(ctx context.Context, freelancerID string) error {
	c.mu.Lock()
	generation := c.generation
	c.declined[freelancerID] = struct{}{}
	index := slices.IndexFunc(c.candidates, func(cand types.Candidate) bool {
		return cand.FreelancerID == freelancerID
	})
	var removed types.Candidate
	if index >= 0 {
		removed = c.candidates[index]
		c.candidates = slices.Delete(slices.Clone(c.candidates), index, index+1)
	}
	snap := c.snapshot()
	c.mu.Unlock()
	if index >= 0 {
		c.notify(snap)
	}

	err := c.api.DeclineFreelancer(ctx, c.jobID, freelancerID)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return err
	}
	delete(c.declined, freelancerID)
	if index >= 0 {
		c.candidates = slices.Insert(slices.Clone(c.candidates), min(index, len(c.candidates)), removed)
	}
	snap = c.snapshot()
	c.mu.Unlock()
	if index >= 0 {
		c.notify(snap)
	}
	return err
}

// Restart asks the server for a new notification round. On success the candidates
// and declines are cleared and the window opens again with the new deadline.
func (c *Controller) Restart(ctx context.Context) (types.RestartResponse, error) {
	resp, err := c.api.RestartSearch(ctx, c.jobID)
	if err != nil {
		return resp, err
	}

	c.mu.Lock()
	c.generation++
	c.candidates = nil
	c.declined = make(map[string]struct{})
	c.state = Open
	now := c.clock.Now()
	if resp.ConfirmEndsAt != nil {
		c.deadline = *resp.ConfirmEndsAt
	} else {
		c.deadline = now.Add(DefaultWindow)
	}
	c.remaining = secondsUntil(c.deadline, now)
	if c.remaining == 0 {
		c.state = Ended
	}
	snap := c.snapshot()
	c.mu.Unlock()

	logger.Debugf("Confirmation window of job %s restarted, %d notified", c.jobID, resp.NotificationsSent)
	c.notify(snap)
	return resp, nil
}

// State returns the current window state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the controller's observable state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		JobID:      c.jobID,
		State:      c.state,
		Remaining:  c.remaining,
		Candidates: slices.Clone(c.candidates),
	}
}

func (c *Controller) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}
