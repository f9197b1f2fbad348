package notificationhandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

// Dispatcher is implemented by notification.Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *notification.MessageEvent) ([]*notification.Notification, error)
	DispatchMessage(ctx context.Context, messageID string) ([]*notification.Notification, error)
}

type NotificationHandler struct {
	dispatcher Dispatcher
}

func NewNotificationHandler(dispatcher Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// DispatchRequest is the message-created event posted by the message API.
type DispatchRequest struct {
	MessageID       string  `json:"message_id" binding:"required"`
	WorkspaceID     string  `json:"workspace_id" binding:"required"`
	SenderID        string  `json:"sender_id" binding:"required"`
	SenderName      string  `json:"sender_name"`
	ChannelID       *string `json:"channel_id"`
	ChannelName     string  `json:"channel_name"`
	ConversationID  *string `json:"conversation_id"`
	ParentMessageID *string `json:"parent_message_id"`
	ThreadID        *string `json:"thread_id"`
	Body            string  `json:"body"`
}

func (r DispatchRequest) toEvent() *notification.MessageEvent {
	return &notification.MessageEvent{
		MessageID:       r.MessageID,
		WorkspaceID:     r.WorkspaceID,
		SenderID:        r.SenderID,
		SenderName:      r.SenderName,
		ChannelID:       nonEmpty(r.ChannelID),
		ConversationID:  nonEmpty(r.ConversationID),
		ParentMessageID: nonEmpty(r.ParentMessageID),
		ThreadID:        nonEmpty(r.ThreadID),
		Body:            r.Body,
		ChannelName:     r.ChannelName,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Dispatch handles POST /v1/notifications/dispatch
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid dispatch request: "+err.Error())
		return
	}

	created, err := h.dispatcher.Dispatch(c.Request.Context(), req.toEvent())
	if err != nil {
		responses.HandleError(c, err, "failed to dispatch notifications")
		return
	}
	c.JSON(http.StatusOK, responses.NewListResponse(created))
}

// DispatchMessage handles POST /v1/messages/:message_id/notifications
func (h *NotificationHandler) DispatchMessage(c *gin.Context) {
	messageID := strings.TrimSpace(c.Param("message_id"))
	if messageID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "message id is required")
		return
	}

	created, err := h.dispatcher.DispatchMessage(c.Request.Context(), messageID)
	if err != nil {
		responses.HandleError(c, err, "failed to dispatch notifications")
		return
	}
	c.JSON(http.StatusOK, responses.NewListResponse(created))
}
