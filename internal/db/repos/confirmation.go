package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
)

// Candidate is an available confirmation joined with the freelancer's public profile
type Candidate struct {
	ConfirmationID    string
	FreelancerID      string
	Status            models.ConfirmationStatus
	Note              *string
	IsOpenJobAccepted bool
	ConfirmedAt       time.Time
	FullName          string
	AvatarURL         *string
	HourlyRateCents   int
	Bio               string
}

// ConfirmationRepository provides access to job confirmations
type ConfirmationRepository struct {
	db *gorm.DB
}

// NewConfirmationRepository creates a new confirmation repository instance
func NewConfirmationRepository(db *gorm.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ConfirmationRepository) WithTx(tx *gorm.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: tx}
}

// Create inserts a confirmation
func (r *ConfirmationRepository) Create(ctx context.Context, c *models.JobConfirmation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Get retrieves the confirmation of a freelancer for a job
func (r *ConfirmationRepository) Get(ctx context.Context, jobID, freelancerID string) (*models.JobConfirmation, error) {
	var c models.JobConfirmation
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND freelancer_id = ?", jobID, freelancerID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("confirmation not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return &c, nil
}

// ListCandidates returns the available confirmations of a job in the order they were made
func (r *ConfirmationRepository) ListCandidates(ctx context.Context, jobID string) ([]Candidate, error) {
	var rows []Candidate
	err := r.db.WithContext(ctx).
		Table(models.TableJobConfirmations+" AS c").
		Select(`c.id AS confirmation_id, c.freelancer_id, c.status, c.note, c.is_open_job_accepted,
			c.created_at AS confirmed_at, COALESCE(p.full_name, '') AS full_name, p.avatar_url,
			COALESCE(fp.hourly_rate_cents, 0) AS hourly_rate_cents, COALESCE(fp.bio, '') AS bio`).
		Joins("LEFT JOIN "+models.TableProfiles+" AS p ON p.id = c.freelancer_id").
		Joins("LEFT JOIN "+models.TableFreelancerProfiles+" AS fp ON fp.profile_id = c.freelancer_id").
		Where("c.job_id = ? AND c.status = ?", jobID, models.ConfirmationAvailable).
		Order("c.created_at ASC, c.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return rows, nil
}

// SetStatus moves a confirmation from one status to another.
// It reports whether a row was changed.
func (r *ConfirmationRepository) SetStatus(ctx context.Context, jobID, freelancerID string, from, to models.ConfirmationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("job_id = ? AND freelancer_id = ? AND status = ?", jobID, freelancerID, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update confirmation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Reopen turns an expired confirmation from an earlier round into a fresh answer
func (r *ConfirmationRepository) Reopen(ctx context.Context, c *models.JobConfirmation) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("id = ? AND status = ?", c.ID, models.ConfirmationExpired).
		Updates(map[string]interface{}{
			"status":               models.ConfirmationAvailable,
			"note":                 c.Note,
			"is_open_job_accepted": c.IsOpenJobAccepted,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to reopen confirmation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExpireOpen marks every available confirmation of a job as expired
func (r *ConfirmationRepository) ExpireOpen(ctx context.Context, jobID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("job_id = ? AND status = ?", jobID, models.ConfirmationAvailable).
		Update("status", models.ConfirmationExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire confirmations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeclinedFreelancerIDs returns the freelancers the client declined for a job
func (r *ConfirmationRepository) DeclinedFreelancerIDs(ctx context.Context, jobID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("job_id = ? AND status = ?", jobID, models.ConfirmationDeclined).
		Pluck("freelancer_id", &ids).Error
	return ids, err
}

// CountAvailable counts the available confirmations across the given jobs
func (r *ConfirmationRepository) CountAvailable(ctx context.Context, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("job_id IN ? AND status = ?", jobIDs, models.ConfirmationAvailable).
		Count(&count).Error
	return count, err
}

// AnsweredJobIDs returns which of the given jobs the freelancer already answered in the current round
func (r *ConfirmationRepository) AnsweredJobIDs(ctx context.Context, freelancerID string, jobIDs []string) ([]string, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.JobConfirmation{}).
		Where("freelancer_id = ? AND job_id IN ? AND status <> ?", freelancerID, jobIDs, models.ConfirmationExpired).
		Pluck("job_id", &ids).Error
	return ids, err
}
