package platformerrors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsErrorKeepsInnerType(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	inner := NewError(ctx, LayerRepository, ErrorTypeNotFound, "message not found", nil)

	wrapped := AsError(ctx, LayerDomain, inner, "load message")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, inner.UUID, wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	assert.True(t, errors.Is(wrapped, inner))
	assert.Equal(t, http.StatusNotFound, ErrorTypeToHTTPStatus(TypeOf(wrapped)))
}

func TestAsErrorPlainError(t *testing.T) {
	assert.Nil(t, AsError(context.Background(), LayerDomain, nil, "noop"))

	cause := errors.New("connection refused")
	wrapped := AsError(context.Background(), LayerInfrastructure, cause, "publish batch")
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "publish batch")
	assert.False(t, IsErrorType(wrapped, ErrorTypeValidation))
}

func TestTypeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, ErrorTypeToHTTPStatus(TypeOf(errors.New("boom"))))
}

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-9")
	err := NewErrorWithContext(ctx, LayerRepository, ErrorTypeDatabaseError, "failed to insert notifications",
		errors.New("connection reset"), map[string]any{"message_id": "m1"})
	LogError(logger, err)
	LogError(logger, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, err.UUID, entry["error_uuid"])
	assert.Equal(t, "DATABASE_ERROR", entry["error_type"])
	assert.Equal(t, "repository", entry["layer"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "m1", entry["message_id"])
	assert.Equal(t, "connection reset", entry["error"])
	assert.Equal(t, "failed to insert notifications", entry["message"])
}
