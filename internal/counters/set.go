package counters

import (
	"context"
	"errors"
	"sync"

	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/types"
)

// ErrNoUser is returned when a Set is started without an authenticated user
var ErrNoUser = errors.New("counters need a user id and a valid role")

// Counter names
const (
	NameUnreadMessages       = "unread_messages"
	NamePendingConfirmations = "pending_confirmations"
	NameScheduleChanges      = "schedule_changes"
)

// Set holds the three badge counters of one user
type Set struct {
	userID string
	role   models.ProfileRole

	UnreadMessages       *Counter
	PendingConfirmations *Counter
	ScheduleChanges      *Counter

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updates chan types.Counts
}

// NewSet builds the counters of a user on top of queries and a change feed
func NewSet(q *Queries, feed events.Subscriber, userID string, role models.ProfileRole) *Set {
	mine := events.Eq("freelancer_id", userID)

	var pendingWatches []Watch
	if role == models.RoleClient {
		pendingWatches = []Watch{
			{Table: models.TableJobRequests, Filter: events.Eq("client_id", userID)},
			{Table: models.TableJobConfirmations},
		}
	} else {
		pendingWatches = []Watch{
			{Table: models.TableJobRequests},
			{Table: models.TableJobConfirmations, Filter: mine},
			{Table: models.TableJobCandidateNotifications, Filter: mine},
		}
	}

	return &Set{
		userID: userID,
		role:   role,
		UnreadMessages: NewCounter(NameUnreadMessages,
			func(ctx context.Context) (int, error) { return q.UnreadMessages(ctx, userID) },
			feed,
			Watch{Table: models.TableMessages},
			Watch{Table: models.TableConversations},
		),
		PendingConfirmations: NewCounter(NamePendingConfirmations,
			func(ctx context.Context) (int, error) { return q.PendingConfirmations(ctx, userID, role) },
			feed,
			pendingWatches...,
		),
		ScheduleChanges: NewCounter(NameScheduleChanges,
			func(ctx context.Context) (int, error) {
				if role != models.RoleFreelancer {
					return 0, nil
				}
				return q.ScheduleChanges(ctx, userID)
			},
			feed,
			Watch{Table: models.TableJobCandidateNotifications, Filter: mine},
		),
		updates: make(chan types.Counts, 1),
	}
}

func (s *Set) counters() []*Counter {
	return []*Counter{s.UnreadMessages, s.PendingConfirmations, s.ScheduleChanges}
}

// Start starts every counter. Without a user id or a valid role nothing starts and
// the counts stay 0.
func (s *Set) Start(ctx context.Context) error {
	if s.userID == "" || !s.role.Valid() {
		return ErrNoUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, c := range s.counters() {
		c.Start(ctx)
	}
	offer(s.updates, s.Snapshot())

	s.wg.Add(1)
	go s.merge(ctx)
	return nil
}

func (s *Set) merge(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.UnreadMessages.Updates():
		case <-s.PendingConfirmations.Updates():
		case <-s.ScheduleChanges.Updates():
		}
		offer(s.updates, s.Snapshot())
	}
}

// Stop stops every counter and resets the counts to 0
func (s *Set) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	for _, c := range s.counters() {
		c.Stop()
	}
}

// Snapshot returns the current counts
func (s *Set) Snapshot() types.Counts {
	return types.Counts{
		UnreadMessages:       s.UnreadMessages.Value(),
		PendingConfirmations: s.PendingConfirmations.Value(),
		ScheduleChanges:      s.ScheduleChanges.Value(),
	}
}

// Updates delivers the counts after any of them changes. Intermediate snapshots may be skipped.
func (s *Set) Updates() <-chan types.Counts {
	return s.updates
}
