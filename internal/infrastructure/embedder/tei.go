package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/metrics"
)

// TEIEmbedder talks to a text-embeddings-inference server (BGE and friends).
type TEIEmbedder struct {
	baseURL    string
	httpClient *resty.Client
}

var _ embedding.Embedder = (*TEIEmbedder)(nil)

type teiEmbedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

func NewTEIEmbedder(baseURL, apiKey string, timeout time.Duration) *TEIEmbedder {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "Jan-Workspace/1.0").
		SetTimeout(timeout)
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	return &TEIEmbedder{baseURL: baseURL, httpClient: httpClient}
}

func (e *TEIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	start := time.Now()
	var vectors [][]float32
	resp, err := e.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(teiEmbedRequest{Inputs: inputs, Normalize: true, Truncate: true}).
		SetResult(&vectors).
		Post("/embed")
	if err != nil {
		return nil, fmt.Errorf("tei embed request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().
			Int("status", resp.StatusCode()).
			Str("endpoint", e.baseURL+"/embed").
			Msg("embedding request failed")
		return nil, fmt.Errorf("tei embed error (%d): %s", resp.StatusCode(), resp.String())
	}

	tokens := 0
	for _, in := range inputs {
		tokens += embedding.EstimateTokens(in)
	}
	metrics.RecordEmbedding("tei", tokens, time.Since(start).Seconds())
	return vectors, nil
}
