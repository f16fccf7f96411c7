package models

import "time"

// NotificationKind distinguishes what a candidate notification is about
type NotificationKind string

// Notification kinds
const (
	NotificationNewJob         NotificationKind = "new_job"
	NotificationScheduleChange NotificationKind = "schedule_change"
)

// JobCandidateNotification tells a freelancer about a job (new round or schedule change)
type JobCandidateNotification struct {
	Base
	JobID        string           `json:"job_id" gorm:"type:uuid;not null;index"`
	FreelancerID string           `json:"freelancer_id" gorm:"type:uuid;not null;index"`
	Kind         NotificationKind `json:"kind" gorm:"type:varchar(32);not null;index"`
	ReadAt       *time.Time       `json:"read_at,omitempty"`
}
