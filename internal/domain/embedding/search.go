package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// MessageSearcher runs a query vector against stored message embeddings of one workspace.
type MessageSearcher interface {
	SearchMessages(ctx context.Context, workspaceID string, vector []float32, limit int) ([]SimilarMessage, error)
}

// QueryService backs the read endpoints: semantic search and usage reporting.
type QueryService struct {
	repo      Repository
	searcher  MessageSearcher
	embedder  Embedder
	maxTokens int
}

// NewQueryService takes the query-time embedder, usually the cached one.
func NewQueryService(repo Repository, searcher MessageSearcher, embedder Embedder, maxTokens int) *QueryService {
	return &QueryService{repo: repo, searcher: searcher, embedder: embedder, maxTokens: maxTokens}
}

func (s *QueryService) Search(ctx context.Context, workspaceID, query string, limit int) ([]SimilarMessage, error) {
	query = strings.TrimSpace(query)
	if workspaceID == "" || query == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "workspace id and query are required", nil)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	vectors, err := s.embedder.Embed(ctx, []string{TruncateToTokenLimit(query, s.maxTokens)})
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to embed search query", err)
	}
	if len(vectors) != 1 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to embed search query", ErrEmbeddingCountMismatch)
	}

	results, err := s.searcher.SearchMessages(ctx, workspaceID, vectors[0], limit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to search messages")
	}
	return results, nil
}

// MonthlyUsage returns the counters for month (YYYY-MM). An empty month means the current one.
// A month without activity yields zero counters rather than an error.
func (s *QueryService) MonthlyUsage(ctx context.Context, workspaceID, month string) (*Usage, error) {
	if workspaceID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "workspace id is required", nil)
	}
	if month == "" {
		month = UsageMonth(time.Now())
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "month must be formatted as YYYY-MM", err)
	}

	usage, err := s.repo.GetUsage(ctx, workspaceID, month)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return &Usage{WorkspaceID: workspaceID, Month: month}, nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load embedding usage")
	}
	return usage, nil
}
