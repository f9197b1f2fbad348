package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

type usageKey struct {
	workspace string
	month     string
}

type fakeRepo struct {
	mu sync.Mutex

	pending     []*PendingMessage
	pageLimits  []int
	listErr     error
	cleared     []string
	clearErr    error
	embeddings  map[string]*MessageEmbedding
	upserts     int
	upsertErrOn map[string]bool
	similarErr  error
	similar     []SimilarMessage
	queries     []SimilarityQuery
	usage       map[usageKey]*Usage
	usageErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		embeddings:  map[string]*MessageEmbedding{},
		upsertErrOn: map[string]bool{},
		usage:       map[usageKey]*Usage{},
	}
}

// ListPendingMessages serves f.pending, which is expected to be sorted by (created_at, id).
func (f *fakeRepo) ListPendingMessages(_ context.Context, after *Cursor, limit int) ([]*PendingMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageLimits = append(f.pageLimits, limit)
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []*PendingMessage
	for _, m := range f.pending {
		if after != nil {
			if m.CreatedAt.Before(after.CreatedAt) {
				continue
			}
			if m.CreatedAt.Equal(after.CreatedAt) && m.ID <= after.ID {
				continue
			}
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) ClearNeedsEmbedding(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, ids...)
	return nil
}

func (f *fakeRepo) FindSimilarMessages(_ context.Context, q SimilarityQuery) ([]SimilarMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	return f.similar, nil
}

func (f *fakeRepo) UpsertEmbedding(_ context.Context, e *MessageEmbedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErrOn[e.MessageID] {
		return errors.New("upsert failed")
	}
	f.upserts++
	f.embeddings[e.MessageID] = e
	return nil
}

func (f *fakeRepo) IncrementUsage(_ context.Context, workspaceID, month string, embeddings, tokens int, cost decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageErr != nil {
		return f.usageErr
	}
	k := usageKey{workspaceID, month}
	u, ok := f.usage[k]
	if !ok {
		u = &Usage{WorkspaceID: workspaceID, Month: month}
		f.usage[k] = u
	}
	u.EmbeddingsCreated += int64(embeddings)
	u.TokensUsed += int64(tokens)
	u.EstimatedCost = u.EstimatedCost.Add(cost)
	return nil
}

func (f *fakeRepo) GetUsage(ctx context.Context, workspaceID, month string) (*Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usage[usageKey{workspaceID, month}]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "usage not found", nil)
	}
	return u, nil
}

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  [][]string
	err    error
	dropN  int
	vector []float32
}

func (e *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, inputs)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(inputs))
	for i := range inputs[:len(inputs)-e.dropN] {
		v := e.vector
		if v == nil {
			v = []float32{float32(i), 1}
		}
		out = append(out, v)
	}
	return out, nil
}

type fakePublisher struct {
	batches   [][]QueueMessage
	failOnce  map[int]error
	rejectIDs map[string]bool
}

func (p *fakePublisher) PublishBatch(_ context.Context, messages []QueueMessage) ([]string, error) {
	p.batches = append(p.batches, messages)
	if err, ok := p.failOnce[len(p.batches)]; ok {
		return nil, err
	}
	var failed []string
	for _, m := range messages {
		if p.rejectIDs[m.ID] {
			failed = append(failed, m.ID)
		}
	}
	return failed, nil
}

func makePending(n int, workspace func(i int) string) []*PendingMessage {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*PendingMessage, n)
	channel := "chan-1"
	for i := range out {
		out[i] = &PendingMessage{
			ID:          fmt.Sprintf("msg-%04d", i),
			WorkspaceID: workspace(i),
			ChannelID:   &channel,
			Body:        fmt.Sprintf("message number %d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}
