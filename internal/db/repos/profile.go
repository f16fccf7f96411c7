package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
)

// ProfileRepository provides access to profiles and freelancer details
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

// Create inserts a profile
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	if !p.Role.Valid() {
		return fmt.Errorf("invalid profile role: %q", p.Role)
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// GetByID retrieves a profile by its ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// CreateFreelancer inserts the freelancer details of a profile
func (r *ProfileRepository) CreateFreelancer(ctx context.Context, fp *models.FreelancerProfile) error {
	return r.db.WithContext(ctx).Create(fp).Error
}

// AvailableFreelancerIDs returns the profile IDs of freelancers currently accepting work
func (r *ProfileRepository) AvailableFreelancerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.FreelancerProfile{}).
		Where("is_available = ?", true).
		Order("created_at ASC").
		Pluck("profile_id", &ids).Error
	return ids, err
}
