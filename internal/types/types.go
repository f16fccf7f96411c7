// Package types holds the request and response payloads of the matching API
package types

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNoteLength bounds the free-text note a freelancer attaches to a confirmation
const MaxNoteLength = 1000

// Candidate is a freelancer who confirmed availability for a job
// swagger:model
type Candidate struct {
	ConfirmationID    string    `json:"confirmation_id"`
	FreelancerID      string    `json:"freelancer_id"`
	Status            string    `json:"status"`
	Note              *string   `json:"note,omitempty"`
	IsOpenJobAccepted bool      `json:"is_open_job_accepted"`
	ConfirmedAt       time.Time `json:"confirmed_at"`
	FullName          string    `json:"full_name"`
	AvatarURL         *string   `json:"avatar_url,omitempty"`
	HourlyRateCents   int       `json:"hourly_rate_cents"`
	Bio               string    `json:"bio,omitempty"`
}

// ConfirmedResponse lists the current candidates of a job and its confirmation deadline
// swagger:model
// Example: {"freelancers":[{"freelancer_id":"...","is_open_job_accepted":true}],"confirm_ends_at":"2024-05-01T10:01:30Z"}
type ConfirmedResponse struct {
	Freelancers   []Candidate `json:"freelancers"`
	ConfirmEndsAt *time.Time  `json:"confirm_ends_at"`
}

// FreelancerRequest names the candidate a select or decline applies to
// swagger:model
type FreelancerRequest struct {
	FreelancerID string `json:"freelancer_id"`
}

// Validate checks the request carries a well-formed freelancer id
func (r *FreelancerRequest) Validate() error {
	if r.FreelancerID == "" {
		return fmt.Errorf("freelancer_id is required")
	}
	if _, err := uuid.Parse(r.FreelancerID); err != nil {
		return fmt.Errorf("freelancer_id must be a uuid: %w", err)
	}
	return nil
}

// SelectResponse carries the conversation opened with the selected freelancer
// swagger:model
type SelectResponse struct {
	ConversationID string `json:"conversation_id"`
}

// RestartResponse describes a new notification round
// swagger:model
// Example: {"job_id":"...","confirm_ends_at":"2024-05-01T10:01:30Z","notifications_sent":4}
type RestartResponse struct {
	JobID             string     `json:"job_id"`
	ConfirmEndsAt     *time.Time `json:"confirm_ends_at"`
	NotificationsSent int        `json:"notifications_sent"`
}

// ConfirmRequest is a freelancer's answer to a job notification
// swagger:model
type ConfirmRequest struct {
	Note              *string `json:"note,omitempty"`
	IsOpenJobAccepted bool    `json:"is_open_job_accepted"`
}

// Validate bounds the note length
func (r *ConfirmRequest) Validate() error {
	if r.Note != nil && utf8.RuneCountInString(*r.Note) > MaxNoteLength {
		return fmt.Errorf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}

// Counts are the aggregate badges shown to a user
// swagger:model
// Example: {"unread_messages":2,"pending_confirmations":1,"schedule_changes":0}
type Counts struct {
	UnreadMessages       int `json:"unread_messages"`
	PendingConfirmations int `json:"pending_confirmations"`
	ScheduleChanges      int `json:"schedule_changes"`
}
