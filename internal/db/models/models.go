// Package models defines the database tables of the marketplace
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table names, as seen by the change feed
const (
	TableProfiles                  = "profiles"
	TableFreelancerProfiles        = "freelancer_profiles"
	TableJobRequests               = "job_requests"
	TableJobConfirmations          = "job_confirmations"
	TableJobCandidateNotifications = "job_candidate_notifications"
	TableConversations             = "conversations"
	TableMessages                  = "messages"
)

// Base carries the UUID primary key and creation time shared by every table
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// BeforeCreate assigns a random UUID when the caller did not provide one
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All returns every model, in dependency order, for auto-migration
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&FreelancerProfile{},
		&JobRequest{},
		&JobConfirmation{},
		&JobCandidateNotification{},
		&Conversation{},
		&Message{},
	}
}
