package dbschema

import (
	"time"

	"github.com/google/uuid"

	"github.com/janhq/jan-workspace/internal/domain/notification"
)

// ===============================================
// Notification Schema
// ===============================================

type Notification struct {
	ID             string    `gorm:"primaryKey;type:text"`
	RecipientID    string    `gorm:"type:text;not null;uniqueIndex:uq_notifications_recipient_message"`
	SenderID       *string   `gorm:"type:text"`
	WorkspaceID    string    `gorm:"type:text;not null"`
	Type           string    `gorm:"type:text;not null"`
	Title          string    `gorm:"type:text;not null"`
	Preview        string    `gorm:"type:text;not null"`
	MessageID      string    `gorm:"type:text;not null;uniqueIndex:uq_notifications_recipient_message"`
	ChannelID      *string   `gorm:"type:text"`
	ConversationID *string   `gorm:"type:text"`
	IsRead         bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NewSchemaNotification converts a domain notification, assigning an id when it has none.
func NewSchemaNotification(n *notification.Notification) *Notification {
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Notification{
		ID:             id,
		RecipientID:    n.RecipientID,
		SenderID:       n.SenderID,
		WorkspaceID:    n.WorkspaceID,
		Type:           string(n.Type),
		Title:          n.Title,
		Preview:        n.Preview,
		MessageID:      n.MessageID,
		ChannelID:      n.ChannelID,
		ConversationID: n.ConversationID,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}

func (n *Notification) EtoD() *notification.Notification {
	return &notification.Notification{
		ID:             n.ID,
		RecipientID:    n.RecipientID,
		SenderID:       n.SenderID,
		WorkspaceID:    n.WorkspaceID,
		Type:           notification.Type(n.Type),
		Title:          n.Title,
		Preview:        n.Preview,
		MessageID:      n.MessageID,
		ChannelID:      n.ChannelID,
		ConversationID: n.ConversationID,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}
