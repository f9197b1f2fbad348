package embeddinghandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

type Sweeper interface {
	Sweep(ctx context.Context) (*embedding.SweepResult, error)
}

type Processor interface {
	Process(ctx context.Context, units []embedding.WorkUnit) (*embedding.BatchResult, error)
}

type Querier interface {
	Search(ctx context.Context, workspaceID, query string, limit int) ([]embedding.SimilarMessage, error)
	MonthlyUsage(ctx context.Context, workspaceID, month string) (*embedding.Usage, error)
}

type EmbeddingHandler struct {
	sweeper   Sweeper
	processor Processor
	querier   Querier
}

func NewEmbeddingHandler(sweeper Sweeper, processor Processor, querier Querier) *EmbeddingHandler {
	return &EmbeddingHandler{sweeper: sweeper, processor: processor, querier: querier}
}

type ProcessRequest struct {
	Units []embedding.WorkUnit `json:"units" binding:"required"`
}

// Sweep handles POST /v1/embeddings/sweep
func (h *EmbeddingHandler) Sweep(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "embedding sweep failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Process handles POST /v1/embeddings/process. Push deliveries retry on any non-2xx.
func (h *EmbeddingHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid process request: "+err.Error())
		return
	}
	if len(req.Units) == 0 || len(req.Units) > embedding.QueueBatchLimit {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "units must hold between 1 and "+strconv.Itoa(embedding.QueueBatchLimit)+" entries")
		return
	}

	result, err := h.processor.Process(c.Request.Context(), req.Units)
	if err != nil {
		if errors.Is(err, embedding.ErrBatchFailed) && result != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		responses.HandleError(c, platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeExternal, "embedding backend failed", err), "embedding batch failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles GET /v1/workspaces/:workspace_id/search?q=&limit=
func (h *EmbeddingHandler) Search(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	results, err := h.querier.Search(c.Request.Context(), c.Param("workspace_id"), c.Query("q"), limit)
	if err != nil {
		responses.HandleError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, responses.NewListResponse(results))
}

// Usage handles GET /v1/workspaces/:workspace_id/embedding-usage?month=YYYY-MM
func (h *EmbeddingHandler) Usage(c *gin.Context) {
	usage, err := h.querier.MonthlyUsage(c.Request.Context(), c.Param("workspace_id"), c.Query("month"))
	if err != nil {
		responses.HandleError(c, err, "failed to load embedding usage")
		return
	}
	c.JSON(http.StatusOK, usage)
}
