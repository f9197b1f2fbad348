package notification

import (
	"context"
	"errors"
	"time"
)

// ===============================================
// Notification Types
// ===============================================

type Type string

const (
	TypeChannelMessage Type = "channel_message"
	TypeMention        Type = "mention"
	TypeDirectMessage  Type = "direct_message"
	TypeThreadReply    Type = "thread_reply"
)

// PreviewMaxRunes is the length of the message excerpt carried by a notification.
const PreviewMaxRunes = 100

var ErrInvalidEvent = errors.New("invalid message event")

// Notification is one recipient's alert about one message.
type Notification struct {
	ID             string    `json:"id"`
	RecipientID    string    `json:"recipient_id"`
	SenderID       *string   `json:"sender_id,omitempty"`
	WorkspaceID    string    `json:"workspace_id"`
	Type           Type      `json:"type"`
	Title          string    `json:"title"`
	Preview        string    `json:"preview"`
	MessageID      string    `json:"message_id"`
	ChannelID      *string   `json:"channel_id,omitempty"`
	ConversationID *string   `json:"conversation_id,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageEvent describes a freshly created message the orchestrator fans out.
type MessageEvent struct {
	MessageID       string  `json:"message_id"`
	WorkspaceID     string  `json:"workspace_id"`
	SenderID        string  `json:"sender_id"`
	SenderName      string  `json:"sender_name"`
	ChannelID       *string `json:"channel_id,omitempty"`
	ConversationID  *string `json:"conversation_id,omitempty"`
	ParentMessageID *string `json:"parent_message_id,omitempty"`
	ThreadID        *string `json:"thread_id,omitempty"`
	Body            string  `json:"body"`

	// ChannelName is looked up by the orchestrator when the event does not carry it.
	ChannelName string `json:"channel_name,omitempty"`
}

func (e *MessageEvent) Validate() error {
	if e == nil || e.MessageID == "" || e.WorkspaceID == "" || e.SenderID == "" {
		return ErrInvalidEvent
	}
	// exactly one scope
	if (e.ChannelID == nil) == (e.ConversationID == nil) {
		return ErrInvalidEvent
	}
	return nil
}

// ResolvedThreadID is the thread a reply belongs to: the explicit thread id, else the parent id.
func (e *MessageEvent) ResolvedThreadID() (string, bool) {
	if e.ThreadID != nil && *e.ThreadID != "" {
		return *e.ThreadID, true
	}
	if e.ParentMessageID != nil && *e.ParentMessageID != "" {
		return *e.ParentMessageID, true
	}
	return "", false
}

// ===============================================
// Collaborators
// ===============================================

// Repository is the read and write surface the builders and orchestrator need.
type Repository interface {
	GetChannelName(ctx context.Context, channelID string) (string, error)
	ListActiveChannelMemberIDs(ctx context.Context, channelID string) ([]string, error)
	ListActiveConversationMemberIDs(ctx context.Context, conversationID string) ([]string, error)
	// GetMessageAuthorID reports found=false when the message does not exist or is deleted.
	GetMessageAuthorID(ctx context.Context, messageID string) (authorID string, found bool, err error)
	// ListThreadParticipantIDs returns distinct authors of live messages whose thread id or
	// parent id equals threadID, plus the author of the root itself.
	ListThreadParticipantIDs(ctx context.Context, threadID string) ([]string, error)
	// CreateBatch persists all notifications in one transaction and returns the stored rows.
	CreateBatch(ctx context.Context, notifications []*Notification) ([]*Notification, error)
	GetMessageEvent(ctx context.Context, messageID string) (*MessageEvent, error)
}

// Broadcaster publishes advisory realtime events. Delivery is never confirmed.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, event string, payload any) error
}

const (
	EventNotificationCreated = "notification_created"
	EventMessageCreated      = "message_created"
)

func MemberTopic(memberID string) string {
	return "workspace_member:" + memberID
}

func ChannelTopic(channelID string) string {
	return "channel:" + channelID
}

func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}
