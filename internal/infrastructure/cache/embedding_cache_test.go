package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
)

type countingEmbedder struct {
	calls  [][]string
	err    error
	shrink bool
}

func (e *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), inputs...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in))}
	}
	if e.shrink {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestCachedEmbedderOnlySendsMisses(t *testing.T) {
	mem, err := NewMemoryCache(16, time.Hour)
	require.NoError(t, err)
	backend := &countingEmbedder{}
	cached := NewCachedEmbedder(backend, mem, "m")
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {3}}, first)

	second, err := cached.Embed(ctx, []string{"bbb", "cc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {2}, {1}}, second)

	require.Len(t, backend.calls, 2)
	assert.Equal(t, []string{"cc"}, backend.calls[1])

	_, err = cached.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Len(t, backend.calls, 2, "full hit must not call the backend")
}

func TestCachedEmbedderErrors(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := NewCachedEmbedder(&countingEmbedder{err: boom}, NoopCache{}, "m").Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, boom)

	_, err = NewCachedEmbedder(&countingEmbedder{shrink: true}, NoopCache{}, "m").Embed(ctx, []string{"x", "y"})
	assert.ErrorIs(t, err, embedding.ErrEmbeddingCountMismatch)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mem, err := NewMemoryCache(4, time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	ctx := context.Background()

	mem.Set(ctx, "k", []float32{1, 2})
	v, ok := mem.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)

	now = now.Add(2 * time.Minute)
	_, ok = mem.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mem, err := NewMemoryCache(2, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	mem.Set(ctx, "a", []float32{1})
	mem.Set(ctx, "b", []float32{2})
	_, _ = mem.Get(ctx, "a")
	mem.Set(ctx, "c", []float32{3})

	_, ok := mem.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = mem.Get(ctx, "a")
	assert.True(t, ok)
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, in, decodeVector(encodeVector(in)))
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(Config{Type: TypeNoop})
	require.NoError(t, err)
	assert.Equal(t, TypeNoop, c.Name())

	c, err = NewCache(Config{Type: TypeMemory, MaxSize: 8, TTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, TypeMemory, c.Name())

	_, err = NewCache(Config{Type: "disk"})
	assert.Error(t, err)
}
