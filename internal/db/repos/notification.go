package repos

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
)

// NotificationRepository provides access to job candidate notifications
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// CreateBatch inserts notifications in batches
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.JobCandidateNotification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(notifications, 100).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// JobIDsByKind returns the distinct jobs the freelancer was notified about with the given kind
func (r *NotificationRepository) JobIDsByKind(ctx context.Context, freelancerID string, kind models.NotificationKind) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.JobCandidateNotification{}).
		Distinct("job_id").
		Where("freelancer_id = ? AND kind = ?", freelancerID, kind).
		Pluck("job_id", &ids).Error
	return ids, err
}

// CountUnread counts unread notifications of a kind for the freelancer
func (r *NotificationRepository) CountUnread(ctx context.Context, freelancerID string, kind models.NotificationKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JobCandidateNotification{}).
		Where("freelancer_id = ? AND kind = ? AND read_at IS NULL", freelancerID, kind).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the freelancer's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, freelancerID, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.JobCandidateNotification{}).
		Where("id = ? AND freelancer_id = ? AND read_at IS NULL", id, freelancerID).
		Update("read_at", at).Error
}
