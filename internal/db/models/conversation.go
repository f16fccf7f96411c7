package models

import "time"

// Conversation is the chat opened between a client and the selected freelancer
type Conversation struct {
	Base
	JobID        string `json:"job_id" gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants"`
	ClientID     string `json:"client_id" gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants;index"`
	FreelancerID string `json:"freelancer_id" gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants;index"`
}

// Message is a single chat message. Attachments live in object storage and are referenced by URL.
type Message struct {
	Base
	ConversationID string     `json:"conversation_id" gorm:"type:uuid;not null;index"`
	SenderID       string     `json:"sender_id" gorm:"type:uuid;not null"`
	Body           string     `json:"body" gorm:"type:text"`
	AttachmentURL  *string    `json:"attachment_url,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty" gorm:"index"`
}
