package embedding

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

type fakeSearcher struct {
	workspace string
	limit     int
	vector    []float32
}

func (s *fakeSearcher) SearchMessages(_ context.Context, workspaceID string, vector []float32, limit int) ([]SimilarMessage, error) {
	s.workspace = workspaceID
	s.limit = limit
	s.vector = vector
	return []SimilarMessage{{MessageID: "m1", Score: 0.88}}, nil
}

func TestQueryServiceSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	emb := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	svc := NewQueryService(newFakeRepo(), searcher, emb, 8191)

	results, err := svc.Search(context.Background(), "ws-1", "  release date  ", 500)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ws-1", searcher.workspace)
	assert.Equal(t, MaxSearchLimit, searcher.limit)
	assert.Equal(t, []float32{0.1, 0.2}, searcher.vector)
	assert.Equal(t, []string{"release date"}, emb.calls[0])

	_, err = svc.Search(context.Background(), "ws-1", "   ", 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestQueryServiceMonthlyUsage(t *testing.T) {
	repo := newFakeRepo()
	require.NoError(t, repo.IncrementUsage(context.Background(), "ws-1", "2025-03", 2, 40, decimal.RequireFromString("0.0008")))
	svc := NewQueryService(repo, &fakeSearcher{}, &fakeEmbedder{}, 8191)

	usage, err := svc.MonthlyUsage(context.Background(), "ws-1", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.EmbeddingsCreated)
	assert.Equal(t, int64(40), usage.TokensUsed)

	empty, err := svc.MonthlyUsage(context.Background(), "ws-1", "2024-01")
	require.NoError(t, err)
	assert.Zero(t, empty.TokensUsed)
	assert.Equal(t, "2024-01", empty.Month)

	_, err = svc.MonthlyUsage(context.Background(), "ws-1", "March")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}
