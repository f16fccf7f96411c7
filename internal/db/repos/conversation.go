package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/db/models"
)

// ConversationRepository provides access to conversations and their messages
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository instance
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ConversationRepository) WithTx(tx *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

// GetOrCreate returns the conversation of a matched pair, creating it on first match.
// The boolean reports whether a new row was inserted.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, jobID, clientID, freelancerID string) (*models.Conversation, bool, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND client_id = ? AND freelancer_id = ?", jobID, clientID, freelancerID).
		First(&conv).Error
	if err == nil {
		return &conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv = models.Conversation{JobID: jobID, ClientID: clientID, FreelancerID: freelancerID}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, true, nil
}

// ListForParticipant returns the conversations the user takes part in
func (r *ConversationRepository) ListForParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("client_id = ? OR freelancer_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&convs).Error
	return convs, err
}

// CreateMessage inserts a message
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ConversationID == "" || msg.SenderID == "" {
		return fmt.Errorf("conversation_id and sender_id are required")
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// MarkRead marks every message in the conversation not sent by the reader as read
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

// CountUnread counts messages addressed to the user that have not been read
func (r *ConversationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(models.TableMessages+" AS m").
		Joins("JOIN "+models.TableConversations+" AS c ON c.id = m.conversation_id").
		Where("(c.client_id = ? OR c.freelancer_id = ?) AND m.sender_id <> ? AND m.read_at IS NULL", userID, userID, userID).
		Count(&count).Error
	return count, err
}
