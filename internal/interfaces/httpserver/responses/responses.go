package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code      string `json:"code,omitempty"` // UUID from PlatformError
	Type      string `json:"type,omitempty"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ListResponse wraps collections so the envelope can grow without breaking clients.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Count: len(items)}
}

// HandleError handles domain errors and returns appropriate HTTP responses.
// Server-side failures are logged with their error uuid so the response code can be traced.
func HandleError(reqCtx *gin.Context, err error, message string) {
	_ = reqCtx.Error(err)

	errorType := platformerrors.TypeOf(err)
	status := platformerrors.ErrorTypeToHTTPStatus(errorType)

	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		if status >= http.StatusInternalServerError {
			platformerrors.LogError(log.Logger, domainErr)
		}
		reqCtx.AbortWithStatusJSON(status, ErrorResponse{
			Code:      domainErr.UUID,
			Type:      string(errorType),
			Error:     message,
			RequestID: domainErr.RequestID,
		})
		return
	}
	log.Error().Err(err).Str("path", reqCtx.FullPath()).Msg(message)
	reqCtx.AbortWithStatusJSON(status, ErrorResponse{
		Type:      string(errorType),
		Error:     message,
		RequestID: platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	})
}

// HandleNewError creates a new typed error at the handler layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, errorType, message, nil)
	HandleError(reqCtx, err, message)
}
