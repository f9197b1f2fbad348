package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/janhq/jan-workspace/internal/domain/mention"
	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
	"github.com/janhq/jan-workspace/internal/metrics"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

const defaultBroadcastTimeout = 5 * time.Second

type ServiceOptions struct {
	BroadcastTimeout time.Duration
}

// Service is the notification orchestrator: it runs the builders in order, persists the merged
// result in one batch and fans out realtime events without waiting for them.
type Service struct {
	repo             Repository
	builders         []Builder
	broadcaster      Broadcaster
	broadcastTimeout time.Duration

	inflight sync.WaitGroup
}

func NewService(repo Repository, resolver *mention.Resolver, broadcaster Broadcaster, opts ServiceOptions) *Service {
	timeout := opts.BroadcastTimeout
	if timeout <= 0 {
		timeout = defaultBroadcastTimeout
	}
	return &Service{
		repo:             repo,
		builders:         DefaultBuilders(repo, resolver),
		broadcaster:      broadcaster,
		broadcastTimeout: timeout,
	}
}

// Dispatch creates every notification for event and returns the persisted rows.
// Store errors fail the call so the trigger can retry. Broadcast errors are only logged.
func (s *Service) Dispatch(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	if err := event.Validate(); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message event requires message, workspace, sender and exactly one of channel or conversation", err)
	}

	ctx, span := observability.StartSpan(ctx, "notification.Dispatch",
		observability.WorkspaceIDKey.String(event.WorkspaceID),
		observability.MessageIDKey.String(event.MessageID),
	)
	defer span.End()

	created, err := s.dispatch(ctx, event)
	if err != nil {
		observability.RecordError(ctx, err)
		metrics.RecordDispatch("error")
		return nil, err
	}
	observability.AddSpanAttributes(ctx, attribute.Int("notification.count", len(created)))
	metrics.RecordDispatch("success")
	return created, nil
}

// DispatchMessage loads the event for a stored message and dispatches it.
func (s *Service) DispatchMessage(ctx context.Context, messageID string) ([]*Notification, error) {
	event, err := s.repo.GetMessageEvent(ctx, messageID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message event")
	}
	return s.Dispatch(ctx, event)
}

func (s *Service) dispatch(ctx context.Context, event *MessageEvent) ([]*Notification, error) {
	if event.ChannelID != nil && event.ChannelName == "" {
		name, err := s.repo.GetChannelName(ctx, *event.ChannelID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load channel")
		}
		event.ChannelName = name
	}

	acc := NewAccumulator(event.SenderID)
	for _, b := range s.builders {
		candidates, err := b.Build(ctx, event)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, b.Name()+" builder failed")
		}
		acc.MergeAll(candidates)
	}

	var created []*Notification
	if acc.Len() > 0 {
		rows, err := s.repo.CreateBatch(ctx, acc.Notifications())
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist notifications")
		}
		created = rows
	}

	for _, n := range created {
		metrics.RecordNotificationCreated(string(n.Type))
		s.broadcastAsync(ctx, "notification", MemberTopic(n.RecipientID), EventNotificationCreated, n)
	}

	scopeTopic := ""
	if event.ChannelID != nil {
		scopeTopic = ChannelTopic(*event.ChannelID)
	} else if event.ConversationID != nil {
		scopeTopic = ConversationTopic(*event.ConversationID)
	}
	if scopeTopic != "" {
		s.broadcastAsync(ctx, "message", scopeTopic, EventMessageCreated, map[string]any{
			"message_id":        event.MessageID,
			"workspace_id":      event.WorkspaceID,
			"sender_id":         event.SenderID,
			"parent_message_id": event.ParentMessageID,
		})
	}

	log.Info().
		Str("message_id", event.MessageID).
		Str("workspace_id", event.WorkspaceID).
		Int("notifications", len(created)).
		Msg("notifications dispatched")

	return created, nil
}

// broadcastAsync publishes in a detached goroutine. The request context is used for values only.
func (s *Service) broadcastAsync(ctx context.Context, kind, topic, event string, payload any) {
	if s.broadcaster == nil {
		return
	}
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.broadcastTimeout)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		if err := s.broadcaster.Broadcast(bctx, topic, event, payload); err != nil {
			metrics.RecordBroadcastFailure(kind)
			log.Warn().Err(err).Str("topic", topic).Str("event", event).Msg("realtime broadcast failed")
		}
	}()
}

// WaitBroadcasts blocks until all in-flight broadcasts have finished.
func (s *Service) WaitBroadcasts() {
	s.inflight.Wait()
}
