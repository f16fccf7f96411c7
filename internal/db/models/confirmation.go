package models

// ConfirmationStatus is the state of a freelancer's answer to a job
type ConfirmationStatus string

// Confirmation statuses
const (
	ConfirmationAvailable ConfirmationStatus = "available"
	ConfirmationDeclined  ConfirmationStatus = "declined"
	ConfirmationSelected  ConfirmationStatus = "selected"
	// ConfirmationExpired marks answers from a notification round that was restarted
	ConfirmationExpired ConfirmationStatus = "expired"
)

// JobConfirmation links a job request to a freelancer who declared availability
type JobConfirmation struct {
	Base
	JobID             string             `json:"job_id" gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_job_freelancer"`
	FreelancerID      string             `json:"freelancer_id" gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_job_freelancer;index"`
	Status            ConfirmationStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Note              *string            `json:"note,omitempty" gorm:"type:text"`
	IsOpenJobAccepted bool               `json:"is_open_job_accepted" gorm:"not null"`
}
