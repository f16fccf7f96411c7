// Package repos provides the gorm-backed repositories of the marketplace tables
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
)

// JobRequestRepository provides access to job-request-related database operations
type JobRequestRepository struct {
	db *gorm.DB
}

// NewJobRequestRepository creates a new job request repository instance
func NewJobRequestRepository(db *gorm.DB) *JobRequestRepository {
	return &JobRequestRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *JobRequestRepository) WithTx(tx *gorm.DB) *JobRequestRepository {
	return &JobRequestRepository{db: tx}
}

// Create creates a new job request in the database
func (r *JobRequestRepository) Create(ctx context.Context, job *models.JobRequest) error {
	if job.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job request by its ID
func (r *JobRequestRepository) GetByID(ctx context.Context, id string) (*models.JobRequest, error) {
	var job models.JobRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job request not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job request: %w", err)
	}
	return &job, nil
}

// GetForClient retrieves a job request owned by the given client
func (r *JobRequestRepository) GetForClient(ctx context.Context, clientID, id string) (*models.JobRequest, error) {
	var job models.JobRequest
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", id, clientID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job request not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job request: %w", err)
	}
	return &job, nil
}

// ListByIDs returns the job requests with the given IDs
func (r *JobRequestRepository) ListByIDs(ctx context.Context, ids []string) ([]models.JobRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var jobs []models.JobRequest
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&jobs).Error
	return jobs, err
}

// ListByClient returns the client's job requests in the given status
func (r *JobRequestRepository) ListByClient(ctx context.Context, clientID string, status models.JobStatus) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, status).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// ListWithDeadline returns every job in the given status that carries a confirmation deadline.
// Deadline comparison is left to the caller so it can use its own clock.
func (r *JobRequestRepository) ListWithDeadline(ctx context.Context, status models.JobStatus) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND confirm_ends_at IS NOT NULL", status).
		Find(&jobs).Error
	return jobs, err
}

// Transition applies updates to a job only while it is in one of the from statuses.
// It reports whether a row was changed.
func (r *JobRequestRepository) Transition(ctx context.Context, id string, from []models.JobStatus, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.JobRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update job request: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
