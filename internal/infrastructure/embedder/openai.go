package embedder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/metrics"
)

// OpenAIEmbedder calls an OpenAI compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      inputs,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("model", e.model).
			Int("inputs", len(inputs)).
			Msg("openai embedding request failed")
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	metrics.RecordEmbedding("openai", resp.Usage.TotalTokens, time.Since(start).Seconds())

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
