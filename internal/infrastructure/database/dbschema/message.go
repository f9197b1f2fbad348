package dbschema

import (
	"time"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/notification"
)

// Message is the read model of the messages table. Rows are written by the message API.
type Message struct {
	ID              string     `gorm:"primaryKey;type:text"`
	WorkspaceID     string     `gorm:"type:text"`
	SenderID        string     `gorm:"type:text"`
	ChannelID       *string    `gorm:"type:text"`
	ConversationID  *string    `gorm:"type:text"`
	ParentMessageID *string    `gorm:"type:text"`
	ThreadID        *string    `gorm:"type:text"`
	Body            string     `gorm:"type:text"`
	Text            *string    `gorm:"type:text"`
	NeedsEmbedding  bool       `gorm:"not null;default:true"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
	DeletedAt       *time.Time `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) ToPending() *embedding.PendingMessage {
	return &embedding.PendingMessage{
		ID:              m.ID,
		WorkspaceID:     m.WorkspaceID,
		ChannelID:       m.ChannelID,
		ConversationID:  m.ConversationID,
		ParentMessageID: m.ParentMessageID,
		Body:            m.Body,
		Text:            m.Text,
		CreatedAt:       m.CreatedAt,
	}
}

// MessageEventRow is a message joined with its sender's display name.
type MessageEventRow struct {
	Message
	SenderName string
}

func (r *MessageEventRow) ToEvent() *notification.MessageEvent {
	return &notification.MessageEvent{
		MessageID:       r.ID,
		WorkspaceID:     r.WorkspaceID,
		SenderID:        r.SenderID,
		SenderName:      r.SenderName,
		ChannelID:       r.ChannelID,
		ConversationID:  r.ConversationID,
		ParentMessageID: r.ParentMessageID,
		ThreadID:        r.ThreadID,
		Body:            r.Body,
	}
}
