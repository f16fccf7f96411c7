package counters

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/db/repos"
)

// Queries computes the aggregates behind each counter
type Queries struct {
	conversations *repos.ConversationRepository
	jobs          *repos.JobRequestRepository
	confirmations *repos.ConfirmationRepository
	notifications *repos.NotificationRepository
	clock         clock.Clock
}

// NewQueries creates the aggregate queries. clk decides which deadlines have passed.
func NewQueries(db *gorm.DB, clk clock.Clock) *Queries {
	if clk == nil {
		clk = clock.New()
	}
	return &Queries{
		conversations: repos.NewConversationRepository(db),
		jobs:          repos.NewJobRequestRepository(db),
		confirmations: repos.NewConfirmationRepository(db),
		notifications: repos.NewNotificationRepository(db),
		clock:         clk,
	}
}

// UnreadMessages counts messages sent to the user that have not been read
func (q *Queries) UnreadMessages(ctx context.Context, userID string) (int, error) {
	n, err := q.conversations.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return int(n), nil
}

// PendingConfirmations counts what awaits the user inside an open confirmation window.
// For a client it is the available answers on their notifying jobs, for a freelancer the
// notified jobs they have not answered yet. A job whose deadline passed never counts,
// even while its status still reads notifying.
func (q *Queries) PendingConfirmations(ctx context.Context, userID string, role models.ProfileRole) (int, error) {
	switch role {
	case models.RoleClient:
		return q.clientPending(ctx, userID)
	case models.RoleFreelancer:
		return q.freelancerPending(ctx, userID)
	default:
		return 0, fmt.Errorf("invalid profile role: %q", role)
	}
}

func (q *Queries) clientPending(ctx context.Context, clientID string) (int, error) {
	jobs, err := q.jobs.ListByClient(ctx, clientID, models.JobStatusNotifying)
	if err != nil {
		return 0, fmt.Errorf("failed to list notifying jobs: %w", err)
	}
	n, err := q.confirmations.CountAvailable(ctx, q.openJobIDs(jobs))
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmations: %w", err)
	}
	return int(n), nil
}

func (q *Queries) freelancerPending(ctx context.Context, freelancerID string) (int, error) {
	notified, err := q.notifications.JobIDsByKind(ctx, freelancerID, models.NotificationNewJob)
	if err != nil {
		return 0, fmt.Errorf("failed to list notified jobs: %w", err)
	}
	jobs, err := q.jobs.ListByIDs(ctx, notified)
	if err != nil {
		return 0, fmt.Errorf("failed to load notified jobs: %w", err)
	}
	open := q.openJobIDs(jobs)
	answered, err := q.confirmations.AnsweredJobIDs(ctx, freelancerID, open)
	if err != nil {
		return 0, fmt.Errorf("failed to list answered jobs: %w", err)
	}
	return len(open) - len(answered), nil
}

func (q *Queries) openJobIDs(jobs []models.JobRequest) []string {
	now := q.clock.Now()
	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		if jobs[i].AwaitingConfirmations(now) {
			ids = append(ids, jobs[i].ID)
		}
	}
	return ids
}

// ScheduleChanges counts unread schedule change notifications of a freelancer
func (q *Queries) ScheduleChanges(ctx context.Context, freelancerID string) (int, error) {
	n, err := q.notifications.CountUnread(ctx, freelancerID, models.NotificationScheduleChange)
	if err != nil {
		return 0, fmt.Errorf("failed to count schedule changes: %w", err)
	}
	return int(n), nil
}
