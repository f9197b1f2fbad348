package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Model:                 "text-embedding-3-small",
		ModelVersion:          "1",
		MaxTokens:             8191,
		SimilarityThreshold:   0.7,
		ContextWindow:         48 * time.Hour,
		PricePerMillionTokens: 0.02,
	}
}

func unit(id, body string) WorkUnit {
	channel := "chan-1"
	return WorkUnit{
		MessageID:   id,
		WorkspaceID: "ws-1",
		ChannelID:   &channel,
		CreatedAt:   time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Body:        body,
	}
}

func TestWorkerProcessHappyPath(t *testing.T) {
	repo := newFakeRepo()
	repo.similar = []SimilarMessage{{MessageID: "older-1", Score: 0.91}, {MessageID: "older-2", Score: 0.75}}
	emb := &fakeEmbedder{}
	w := NewWorker(repo, emb, testWorkerOptions())
	w.now = func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) }

	res, err := w.Process(context.Background(), []WorkUnit{
		unit("m1", "  Can we ship on Friday?  "),
		unit("m2", "ok"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fulfilled)

	require.Len(t, emb.calls, 1, "one batched embedding call")
	assert.Equal(t, []string{"Can we ship on Friday?", "ok"}, emb.calls[0])

	m1 := repo.embeddings["m1"]
	require.NotNil(t, m1)
	assert.Equal(t, []float32{0, 1}, m1.Embedding)
	assert.Equal(t, []string{"older-1", "older-2"}, m1.ContextIDs)
	assert.Equal(t, []float64{0.91, 0.75}, m1.ContextScores)
	assert.True(t, m1.IsQuestion)
	assert.False(t, m1.IsShortAnswer)
	assert.Equal(t, EstimateTokens("Can we ship on Friday?"), m1.TokenCount)
	assert.Equal(t, "text-embedding-3-small", m1.Model)

	m2 := repo.embeddings["m2"]
	assert.Equal(t, []float32{1, 1}, m2.Embedding, "output i belongs to input i")
	assert.True(t, m2.IsShortAnswer)

	assert.ElementsMatch(t, []string{"m1", "m2"}, repo.cleared)

	usage := repo.usage[usageKey{"ws-1", "2025-03"}]
	require.NotNil(t, usage)
	assert.Equal(t, int64(2), usage.EmbeddingsCreated)
	assert.Equal(t, int64(m1.TokenCount+m2.TokenCount), usage.TokensUsed)

	require.Len(t, repo.queries, 2)
	q := repo.queries[0]
	assert.Equal(t, "ws-1", q.WorkspaceID)
	assert.Equal(t, 0.7, q.Threshold)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, q.Before.Add(-48*time.Hour), q.After)
}

func TestWorkerUsesTextOverBodyAndTruncates(t *testing.T) {
	repo := newFakeRepo()
	emb := &fakeEmbedder{}
	opts := testWorkerOptions()
	opts.MaxTokens = 10
	w := NewWorker(repo, emb, opts)

	u := unit("m1", "<p>markup</p>")
	plain := strings.Repeat("z", 100)
	u.Text = &plain

	_, err := w.Process(context.Background(), []WorkUnit{u})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("z", 36), emb.calls[0][0])
	assert.Equal(t, 9, repo.embeddings["m1"].TokenCount)
}

func TestWorkerSkipsEmptyUnits(t *testing.T) {
	repo := newFakeRepo()
	emb := &fakeEmbedder{}
	w := NewWorker(repo, emb, testWorkerOptions())

	res, err := w.Process(context.Background(), []WorkUnit{unit("blank", "   "), unit("m1", "hello")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, OutcomeSkipped, res.Outcomes[0].Status)
	assert.Equal(t, []string{"hello"}, emb.calls[0])
	assert.Contains(t, repo.cleared, "blank")
}

func TestWorkerIsolatesRejectedUnits(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErrOn["m2"] = true
	w := NewWorker(repo, &fakeEmbedder{}, testWorkerOptions())

	res, err := w.Process(context.Background(), []WorkUnit{unit("m1", "one"), unit("m2", "two"), unit("m3", "three")})
	require.ErrorIs(t, err, ErrBatchFailed)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.Fulfilled)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, OutcomeRejected, res.Outcomes[1].Status)
	assert.NotEmpty(t, res.Outcomes[1].Error)
	assert.Contains(t, repo.embeddings, "m1")
	assert.Contains(t, repo.embeddings, "m3")
	assert.NotContains(t, repo.cleared, "m2")
}

func TestWorkerNeighborLookupFailureRejects(t *testing.T) {
	repo := newFakeRepo()
	repo.similarErr = errors.New("index unavailable")
	w := NewWorker(repo, &fakeEmbedder{}, testWorkerOptions())

	res, err := w.Process(context.Background(), []WorkUnit{unit("m1", "one")})
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.Equal(t, 1, res.Rejected)
	assert.Empty(t, repo.embeddings)
}

func TestWorkerBookkeepingFailuresAreNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.clearErr = errors.New("flag update failed")
	repo.usageErr = errors.New("usage update failed")
	w := NewWorker(repo, &fakeEmbedder{}, testWorkerOptions())

	res, err := w.Process(context.Background(), []WorkUnit{unit("m1", "one")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fulfilled)
	assert.Contains(t, repo.embeddings, "m1")
}

func TestWorkerEmbeddingFailures(t *testing.T) {
	repo := newFakeRepo()

	_, err := NewWorker(repo, &fakeEmbedder{err: errors.New("503")}, testWorkerOptions()).
		Process(context.Background(), []WorkUnit{unit("m1", "one")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBatchFailed)

	_, err = NewWorker(repo, &fakeEmbedder{dropN: 1}, testWorkerOptions()).
		Process(context.Background(), []WorkUnit{unit("m1", "one"), unit("m2", "two")})
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
	assert.Empty(t, repo.embeddings)
}

func TestWorkerRejectsVectorsOfTheWrongDimension(t *testing.T) {
	repo := newFakeRepo()
	opts := testWorkerOptions()
	opts.Dimensions = 1536
	emb := &fakeEmbedder{vector: make([]float32, 768)}

	res, err := NewWorker(repo, emb, opts).
		Process(context.Background(), []WorkUnit{unit("m1", "one"), unit("m2", "two")})
	assert.ErrorIs(t, err, ErrEmbeddingDimensionMismatch)
	assert.NotErrorIs(t, err, ErrBatchFailed)
	assert.Nil(t, res)
	assert.Empty(t, repo.embeddings)
	assert.Zero(t, repo.upserts)
	assert.Empty(t, repo.cleared)

	emb.vector = make([]float32, 1536)
	res, err = NewWorker(repo, emb, opts).
		Process(context.Background(), []WorkUnit{unit("m1", "one")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fulfilled)
	assert.Len(t, repo.embeddings["m1"].Embedding, 1536)
}

func TestWorkerRedeliveryIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	w := NewWorker(repo, &fakeEmbedder{}, testWorkerOptions())

	for i := 0; i < 2; i++ {
		_, err := w.Process(context.Background(), []WorkUnit{unit("m1", "same message")})
		require.NoError(t, err)
	}
	assert.Len(t, repo.embeddings, 1)
	assert.Equal(t, 2, repo.upserts)
}

type fakeConsumer struct {
	mu       sync.Mutex
	batches  [][]Delivery
	acked    []string
	cancel   context.CancelFunc
	received int
}

func (c *fakeConsumer) Receive(ctx context.Context, _ int) ([]Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.received >= len(c.batches) {
		c.cancel()
		return nil, ctx.Err()
	}
	b := c.batches[c.received]
	c.received++
	return b, nil
}

func (c *fakeConsumer) Ack(_ context.Context, deliveries []Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range deliveries {
		c.acked = append(c.acked, d.Handle)
	}
	return nil
}

func TestWorkerRunAcksOnlySuccessfulBatches(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErrOn["bad"] = true
	w := NewWorker(repo, &fakeEmbedder{}, testWorkerOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &fakeConsumer{
		cancel: cancel,
		batches: [][]Delivery{
			{{Handle: "h1", Unit: unit("good-1", "first")}, {Handle: "h2", Unit: unit("good-2", "second")}},
			{{Handle: "h3", Unit: unit("bad", "third")}, {Handle: "h4", Unit: unit("good-3", "fourth")}},
		},
	}

	require.NoError(t, w.Run(ctx, consumer))
	assert.Equal(t, []string{"h1", "h2"}, consumer.acked)
	assert.Contains(t, repo.embeddings, "good-3")
}
