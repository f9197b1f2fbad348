package notification

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/janhq/jan-workspace/internal/domain/mention"
)

// Builder produces the candidate notifications of one class for a message.
// Builders only read from the store; merging into the pass is done by the orchestrator.
type Builder interface {
	Name() string
	Build(ctx context.Context, event *MessageEvent) ([]*Notification, error)
}

// DefaultBuilders returns the builders in evaluation order: channel, mention, direct message, thread.
func DefaultBuilders(repo Repository, resolver *mention.Resolver) []Builder {
	return []Builder{
		NewChannelBuilder(repo),
		NewMentionBuilder(resolver),
		NewDirectMessageBuilder(repo),
		NewThreadReplyBuilder(repo),
	}
}

// ===============================================
// Channel
// ===============================================

type ChannelBuilder struct {
	repo Repository
}

func NewChannelBuilder(repo Repository) *ChannelBuilder {
	return &ChannelBuilder{repo: repo}
}

func (b *ChannelBuilder) Name() string { return "channel" }

func (b *ChannelBuilder) Build(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	if event.ChannelID == nil {
		return nil, nil
	}

	memberIDs, err := b.repo.ListActiveChannelMemberIDs(ctx, *event.ChannelID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("New message in #%s", event.ChannelName)
	out := make([]*Notification, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == event.SenderID {
			continue
		}
		out = append(out, newNotification(event, id, TypeChannelMessage, title))
	}
	return out, nil
}

// ===============================================
// Mention
// ===============================================

type MentionBuilder struct {
	resolver *mention.Resolver
}

func NewMentionBuilder(resolver *mention.Resolver) *MentionBuilder {
	return &MentionBuilder{resolver: resolver}
}

func (b *MentionBuilder) Name() string { return "mention" }

func (b *MentionBuilder) Build(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	refs := mention.ExtractMentions(event.Body)
	if len(refs) == 0 {
		return nil, nil
	}

	memberIDs, err := b.resolver.ResolveMentions(ctx, refs, event.WorkspaceID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s mentioned you", senderName(event))
	if event.ChannelID != nil {
		title = fmt.Sprintf("%s mentioned you in #%s", senderName(event), event.ChannelName)
	}

	out := make([]*Notification, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == event.SenderID {
			continue
		}
		out = append(out, newNotification(event, id, TypeMention, title))
	}
	return out, nil
}

// ===============================================
// Direct message
// ===============================================

type DirectMessageBuilder struct {
	repo Repository
}

func NewDirectMessageBuilder(repo Repository) *DirectMessageBuilder {
	return &DirectMessageBuilder{repo: repo}
}

func (b *DirectMessageBuilder) Name() string { return "direct_message" }

func (b *DirectMessageBuilder) Build(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	if event.ConversationID == nil {
		return nil, nil
	}

	memberIDs, err := b.repo.ListActiveConversationMemberIDs(ctx, *event.ConversationID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("New message from %s", senderName(event))
	out := make([]*Notification, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == event.SenderID {
			continue
		}
		out = append(out, newNotification(event, id, TypeDirectMessage, title))
	}
	return out, nil
}

// ===============================================
// Thread reply
// ===============================================

type ThreadReplyBuilder struct {
	repo Repository
}

func NewThreadReplyBuilder(repo Repository) *ThreadReplyBuilder {
	return &ThreadReplyBuilder{repo: repo}
}

func (b *ThreadReplyBuilder) Name() string { return "thread_reply" }

// Build notifies the parent's author first, then every other distinct thread participant.
// A missing parent is not an error; its author is simply skipped.
func (b *ThreadReplyBuilder) Build(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	if event.ParentMessageID == nil || *event.ParentMessageID == "" {
		return nil, nil
	}
	threadID, _ := event.ResolvedThreadID()

	var out []*Notification
	seen := map[string]struct{}{event.SenderID: {}}

	authorID, found, err := b.repo.GetMessageAuthorID(ctx, *event.ParentMessageID)
	if err != nil {
		return nil, err
	}
	if found {
		if _, ok := seen[authorID]; !ok {
			seen[authorID] = struct{}{}
			out = append(out, newNotification(event, authorID, TypeThreadReply,
				fmt.Sprintf("%s replied to your message", senderName(event))))
		}
	}

	participants, err := b.repo.ListThreadParticipantIDs(ctx, threadID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s replied in a thread", senderName(event))
	for _, id := range participants {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, newNotification(event, id, TypeThreadReply, title))
	}
	return out, nil
}

// ===============================================
// Helpers
// ===============================================

func newNotification(event *MessageEvent, recipientID string, t Type, title string) *Notification {
	senderID := event.SenderID
	return &Notification{
		RecipientID:    recipientID,
		SenderID:       &senderID,
		WorkspaceID:    event.WorkspaceID,
		Type:           t,
		Title:          title,
		Preview:        Preview(event.Body),
		MessageID:      event.MessageID,
		ChannelID:      event.ChannelID,
		ConversationID: event.ConversationID,
	}
}

func senderName(event *MessageEvent) string {
	if name := strings.TrimSpace(event.SenderName); name != "" {
		return name
	}
	return "Someone"
}

// Preview trims body and cuts it to PreviewMaxRunes, appending "..." when something was cut.
func Preview(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= PreviewMaxRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:PreviewMaxRunes]) + "..."
}
