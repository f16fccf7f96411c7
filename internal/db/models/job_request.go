package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus represents where a job request is in the matching workflow
type JobStatus int

// Job status constants
const (
	// JobStatusDraft is a request the client has not finished
	JobStatusDraft JobStatus = iota
	// JobStatusReady is a complete request that has not notified anyone yet
	JobStatusReady
	// JobStatusNotifying means a confirmation window is open
	JobStatusNotifying
	// JobStatusConfirmationsClosed means the window elapsed without a selection
	JobStatusConfirmationsClosed
	// JobStatusLocked means the client selected a freelancer
	JobStatusLocked
	// JobStatusActive means the booking is in progress
	JobStatusActive
	// JobStatusCompleted means the booking is over
	JobStatusCompleted
	// JobStatusCancelled means the request was withdrawn
	JobStatusCancelled
)

var jobStatusNames = []string{
	"draft",
	"ready",
	"notifying",
	"confirmations_closed",
	"locked",
	"active",
	"completed",
	"cancelled",
}

// JobRequest is a client's request for childcare
type JobRequest struct {
	Base
	ClientID             string     `json:"client_id" gorm:"type:uuid;not null;index"`
	Status               JobStatus  `json:"status" gorm:"not null;index"`
	Stage                *string    `json:"stage,omitempty"`
	ConfirmEndsAt        *time.Time `json:"confirm_ends_at,omitempty" gorm:"index"`
	SelectedFreelancerID *string    `json:"selected_freelancer_id,omitempty" gorm:"type:uuid"`
	IsOpenJob            bool       `json:"is_open_job" gorm:"not null"`
	StartsAt             *time.Time `json:"starts_at,omitempty"`
	EndsAt               *time.Time `json:"ends_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// WindowExpired reports whether the confirmation deadline is at or before now.
// A job without a deadline never expires.
func (j *JobRequest) WindowExpired(now time.Time) bool {
	return j.ConfirmEndsAt != nil && !j.ConfirmEndsAt.After(now)
}

// AwaitingConfirmations reports whether freelancers may still confirm at now,
// regardless of whether the expiry sweep already ran
func (j *JobRequest) AwaitingConfirmations(now time.Time) bool {
	return j.Status == JobStatusNotifying && j.ConfirmEndsAt != nil && !j.WindowExpired(now)
}

// CanSelect reports whether a candidate may be selected in this status
func (s JobStatus) CanSelect() bool {
	return s == JobStatusNotifying || s == JobStatusConfirmationsClosed
}

// CanRestart reports whether a new notification round may start from this status
func (s JobStatus) CanRestart() bool {
	return s == JobStatusReady || s == JobStatusNotifying || s == JobStatusConfirmationsClosed
}

// ParseJobStatus converts a string representation of a job status to JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	for i, status := range jobStatusNames {
		if status == str {
			return JobStatus(i), nil
		}
	}
	return JobStatusDraft, fmt.Errorf("invalid job status: %s", str)
}

func (s JobStatus) String() string {
	if s < 0 || int(s) >= len(jobStatusNames) {
		return "unknown"
	}
	return jobStatusNames[s]
}

// MarshalJSON implements the json.Marshaler interface for JobStatus
func (s JobStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}
