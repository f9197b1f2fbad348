package responses_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

func serve(t *testing.T, err error) (*httptest.ResponseRecorder, responses.ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/fail", func(c *gin.Context) {
		responses.HandleError(c, err, "request failed")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	var body responses.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleErrorMapsPlatformErrorType(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")
	err := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "message not found", nil)

	w, body := serve(t, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body.Type)
	assert.Equal(t, err.UUID, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "request failed", body.Error)
}

func TestHandleErrorExternalIsBadGateway(t *testing.T) {
	err := platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "embedding backend unavailable", errors.New("503"))

	w, body := serve(t, err)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "EXTERNAL", body.Type)
}

func TestHandleErrorPlainErrorIsInternal(t *testing.T) {
	w, body := serve(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", body.Type)
	assert.Empty(t, body.Code)
}

func TestNewListResponseNeverNil(t *testing.T) {
	list := responses.NewListResponse[string](nil)
	assert.NotNil(t, list.Data)
	assert.Equal(t, 0, list.Count)
}
