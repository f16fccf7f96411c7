// Package services implements the matching workflow on top of the repositories
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/carematch/carematch/config"
	"github.com/carematch/carematch/internal/db"
	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/db/repos"
	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/types"
)

// Matching errors, mapped to HTTP statuses by the handlers
var (
	ErrJobNotFound       = errors.New("job request not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrWindowClosed      = errors.New("confirmation window closed")
)

// MatchingOptions configures a Matching service
type MatchingOptions struct {
	// Publisher receives the changes of every committed transaction
	Publisher events.Publisher
	// Clock defaults to the wall clock
	Clock clock.Clock
	// ConfirmWindow is the length of a notification round
	ConfirmWindow time.Duration
}

// Matching provides the business logic of confirmation windows and candidate selection
type Matching struct {
	db            *gorm.DB
	jobs          *repos.JobRequestRepository
	confirmations *repos.ConfirmationRepository
	notifications *repos.NotificationRepository
	conversations *repos.ConversationRepository
	profiles      *repos.ProfileRepository
	publisher     events.Publisher
	clock         clock.Clock
	window        time.Duration
}

// NewMatchingService creates a new matching service instance
func NewMatchingService(db *gorm.DB, opts MatchingOptions) *Matching {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ConfirmWindow <= 0 {
		opts.ConfirmWindow = config.DefaultConfirmWindow
	}
	if opts.Publisher == nil {
		opts.Publisher = discard{}
	}
	return &Matching{
		db:            db,
		jobs:          repos.NewJobRequestRepository(db),
		confirmations: repos.NewConfirmationRepository(db),
		notifications: repos.NewNotificationRepository(db),
		conversations: repos.NewConversationRepository(db),
		profiles:      repos.NewProfileRepository(db),
		publisher:     opts.Publisher,
		clock:         opts.Clock,
		window:        opts.ConfirmWindow,
	}
}

type discard struct{}

func (discard) Publish(events.Change) {}

// txRepos groups the repositories bound to one transaction
type txRepos struct {
	jobs          *repos.JobRequestRepository
	confirmations *repos.ConfirmationRepository
	notifications *repos.NotificationRepository
	conversations *repos.ConversationRepository
	profiles      *repos.ProfileRepository
	changes       []events.Change
}

func (t *txRepos) record(table string, typ events.ChangeType, row map[string]string) {
	t.changes = append(t.changes, events.Change{Table: table, Type: typ, Row: row})
}

// inTx runs fn in a transaction and publishes the recorded changes once it commits
func (s *Matching) inTx(ctx context.Context, fn func(t *txRepos) error) error {
	var changes []events.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := &txRepos{
			jobs:          s.jobs.WithTx(tx),
			confirmations: s.confirmations.WithTx(tx),
			notifications: s.notifications.WithTx(tx),
			conversations: s.conversations.WithTx(tx),
			profiles:      s.profiles.WithTx(tx),
		}
		if err := fn(t); err != nil {
			return err
		}
		changes = t.changes
		return nil
	})
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	for _, c := range changes {
		c.At = now
		s.publisher.Publish(c)
	}
	return nil
}

func (s *Matching) now() time.Time {
	return s.clock.Now().UTC()
}

func jobNotFound(jobID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return err
}

// ListConfirmed returns the available candidates of a client's job and its deadline
func (s *Matching) ListConfirmed(ctx context.Context, clientID, jobID string) (*types.ConfirmedResponse, error) {
	job, err := s.jobs.GetForClient(ctx, clientID, jobID)
	if err != nil {
		return nil, jobNotFound(jobID, err)
	}

	rows, err := s.confirmations.ListCandidates(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, types.Candidate{
			ConfirmationID:    r.ConfirmationID,
			FreelancerID:      r.FreelancerID,
			Status:            string(r.Status),
			Note:              r.Note,
			IsOpenJobAccepted: r.IsOpenJobAccepted,
			ConfirmedAt:       r.ConfirmedAt,
			FullName:          r.FullName,
			AvatarURL:         r.AvatarURL,
			HourlyRateCents:   r.HourlyRateCents,
			Bio:               r.Bio,
		})
	}
	return &types.ConfirmedResponse{Freelancers: candidates, ConfirmEndsAt: job.ConfirmEndsAt}, nil
}

// Select locks the job to a candidate and returns the conversation opened with them
func (s *Matching) Select(ctx context.Context, clientID, jobID, freelancerID string) (string, error) {
	var conversationID string
	err := s.inTx(ctx, func(t *txRepos) error {
		job, err := t.jobs.GetForClient(ctx, clientID, jobID)
		if err != nil {
			return jobNotFound(jobID, err)
		}
		if !job.Status.CanSelect() {
			return fmt.Errorf("%w: cannot select a candidate while job is %s", ErrInvalidTransition, job.Status)
		}

		changed, err := t.confirmations.SetStatus(ctx, jobID, freelancerID, models.ConfirmationAvailable, models.ConfirmationSelected)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: %s", ErrCandidateNotFound, freelancerID)
		}
		t.record(models.TableJobConfirmations, events.ChangeUpdate, map[string]string{
			"job_id":        jobID,
			"freelancer_id": freelancerID,
			"status":        string(models.ConfirmationSelected),
		})

		changed, err = t.jobs.Transition(ctx, jobID,
			[]models.JobStatus{models.JobStatusNotifying, models.JobStatusConfirmationsClosed},
			map[string]interface{}{
				"status":                 models.JobStatusLocked,
				"selected_freelancer_id": freelancerID,
			})
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: job changed concurrently", ErrInvalidTransition)
		}
		t.record(models.TableJobRequests, events.ChangeUpdate, map[string]string{
			"id":        jobID,
			"client_id": clientID,
			"status":    models.JobStatusLocked.String(),
		})

		conv, created, err := t.conversations.GetOrCreate(ctx, jobID, clientID, freelancerID)
		if err != nil {
			return err
		}
		if created {
			t.record(models.TableConversations, events.ChangeInsert, map[string]string{
				"id":            conv.ID,
				"job_id":        jobID,
				"client_id":     clientID,
				"freelancer_id": freelancerID,
			})
		}
		conversationID = conv.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.InfoWithFields("Candidate selected", map[string]interface{}{
		"job_id":          jobID,
		"freelancer_id":   freelancerID,
		"conversation_id": conversationID,
	})
	return conversationID, nil
}

// Decline removes a candidate from the job. The job itself is left untouched.
func (s *Matching) Decline(ctx context.Context, clientID, jobID, freelancerID string) error {
	return s.inTx(ctx, func(t *txRepos) error {
		job, err := t.jobs.GetForClient(ctx, clientID, jobID)
		if err != nil {
			return jobNotFound(jobID, err)
		}
		if !job.Status.CanSelect() {
			return fmt.Errorf("%w: cannot decline a candidate while job is %s", ErrInvalidTransition, job.Status)
		}

		changed, err := t.confirmations.SetStatus(ctx, jobID, freelancerID, models.ConfirmationAvailable, models.ConfirmationDeclined)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: %s", ErrCandidateNotFound, freelancerID)
		}
		t.record(models.TableJobConfirmations, events.ChangeUpdate, map[string]string{
			"job_id":        jobID,
			"freelancer_id": freelancerID,
			"status":        string(models.ConfirmationDeclined),
		})
		return nil
	})
}

// Restart opens a new notification round: open answers expire, the deadline is reset
// and every available freelancer the client has not declined is notified
func (s *Matching) Restart(ctx context.Context, clientID, jobID string) (*types.RestartResponse, error) {
	deadline := s.now().Add(s.window)
	sent := 0

	err := s.inTx(ctx, func(t *txRepos) error {
		job, err := t.jobs.GetForClient(ctx, clientID, jobID)
		if err != nil {
			return jobNotFound(jobID, err)
		}
		if !job.Status.CanRestart() {
			return fmt.Errorf("%w: cannot restart while job is %s", ErrInvalidTransition, job.Status)
		}

		expired, err := t.confirmations.ExpireOpen(ctx, jobID)
		if err != nil {
			return err
		}
		if expired > 0 {
			t.record(models.TableJobConfirmations, events.ChangeUpdate, map[string]string{
				"job_id": jobID,
				"status": string(models.ConfirmationExpired),
			})
		}

		changed, err := t.jobs.Transition(ctx, jobID,
			[]models.JobStatus{job.Status},
			map[string]interface{}{
				"status":          models.JobStatusNotifying,
				"confirm_ends_at": deadline,
			})
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: job changed concurrently", ErrInvalidTransition)
		}
		t.record(models.TableJobRequests, events.ChangeUpdate, map[string]string{
			"id":        jobID,
			"client_id": clientID,
			"status":    models.JobStatusNotifying.String(),
		})

		available, err := t.profiles.AvailableFreelancerIDs(ctx)
		if err != nil {
			return err
		}
		declined, err := t.confirmations.DeclinedFreelancerIDs(ctx, jobID)
		if err != nil {
			return err
		}
		skip := make(map[string]struct{}, len(declined))
		for _, id := range declined {
			skip[id] = struct{}{}
		}

		var notifications []models.JobCandidateNotification
		for _, id := range available {
			if _, ok := skip[id]; ok {
				continue
			}
			notifications = append(notifications, models.JobCandidateNotification{
				JobID:        jobID,
				FreelancerID: id,
				Kind:         models.NotificationNewJob,
			})
		}
		if err := t.notifications.CreateBatch(ctx, notifications); err != nil {
			return err
		}
		for _, n := range notifications {
			t.record(models.TableJobCandidateNotifications, events.ChangeInsert, map[string]string{
				"id":            n.ID,
				"job_id":        jobID,
				"freelancer_id": n.FreelancerID,
				"kind":          string(n.Kind),
			})
		}
		sent = len(notifications)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithFields("Notification round started", map[string]interface{}{
		"job_id":             jobID,
		"confirm_ends_at":    deadline,
		"notifications_sent": sent,
	})
	return &types.RestartResponse{JobID: jobID, ConfirmEndsAt: &deadline, NotificationsSent: sent}, nil
}

// Confirm records a freelancer's availability for a job while its window is open
func (s *Matching) Confirm(ctx context.Context, freelancerID, jobID string, req types.ConfirmRequest) error {
	now := s.now()
	return s.inTx(ctx, func(t *txRepos) error {
		job, err := t.jobs.GetByID(ctx, jobID)
		if err != nil {
			return jobNotFound(jobID, err)
		}
		switch {
		case job.Status == models.JobStatusConfirmationsClosed:
			return fmt.Errorf("%w: job %s", ErrWindowClosed, jobID)
		case job.Status != models.JobStatusNotifying:
			return fmt.Errorf("%w: job is %s", ErrInvalidTransition, job.Status)
		case !job.AwaitingConfirmations(now):
			return fmt.Errorf("%w: job %s", ErrWindowClosed, jobID)
		}

		existing, err := t.confirmations.Get(ctx, jobID, freelancerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := map[string]string{
			"job_id":        jobID,
			"freelancer_id": freelancerID,
			"status":        string(models.ConfirmationAvailable),
		}
		if existing == nil {
			c := &models.JobConfirmation{
				JobID:             jobID,
				FreelancerID:      freelancerID,
				Status:            models.ConfirmationAvailable,
				Note:              req.Note,
				IsOpenJobAccepted: req.IsOpenJobAccepted,
			}
			if err := t.confirmations.Create(ctx, c); err != nil {
				if db.IsDuplicateKeyError(err) {
					return fmt.Errorf("%w: freelancer already answered", ErrInvalidTransition)
				}
				return err
			}
			row["id"] = c.ID
			t.record(models.TableJobConfirmations, events.ChangeInsert, row)
			return nil
		}

		if existing.Status != models.ConfirmationExpired {
			return fmt.Errorf("%w: freelancer already answered (%s)", ErrInvalidTransition, existing.Status)
		}
		existing.Note = req.Note
		existing.IsOpenJobAccepted = req.IsOpenJobAccepted
		reopened, err := t.confirmations.Reopen(ctx, existing)
		if err != nil {
			return err
		}
		if !reopened {
			return fmt.Errorf("%w: confirmation changed concurrently", ErrInvalidTransition)
		}
		row["id"] = existing.ID
		t.record(models.TableJobConfirmations, events.ChangeUpdate, row)
		return nil
	})
}

// CloseExpiredWindows moves every notifying job whose deadline passed to confirmations_closed.
// It returns how many jobs were closed.
func (s *Matching) CloseExpiredWindows(ctx context.Context) (int, error) {
	now := s.now()
	jobs, err := s.jobs.ListWithDeadline(ctx, models.JobStatusNotifying)
	if err != nil {
		return 0, fmt.Errorf("failed to list notifying jobs: %w", err)
	}

	closed := 0
	err = s.inTx(ctx, func(t *txRepos) error {
		for _, job := range jobs {
			if !job.WindowExpired(now) {
				continue
			}
			changed, err := t.jobs.Transition(ctx, job.ID,
				[]models.JobStatus{models.JobStatusNotifying},
				map[string]interface{}{"status": models.JobStatusConfirmationsClosed})
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			t.record(models.TableJobRequests, events.ChangeUpdate, map[string]string{
				"id":        job.ID,
				"client_id": job.ClientID,
				"status":    models.JobStatusConfirmationsClosed.String(),
			})
			closed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return closed, nil
}
