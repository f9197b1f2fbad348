package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
	"github.com/janhq/jan-workspace/internal/metrics"
)

type WorkerOptions struct {
	Model                 string
	ModelVersion          string
	Dimensions            int // 0 accepts any size
	MaxTokens             int
	SimilarityThreshold   float64
	ContextWindow         time.Duration
	MaxContextResults     int
	PricePerMillionTokens float64
	BatchSize             int
	ErrorBackoff          time.Duration
}

const (
	OutcomeFulfilled = "fulfilled"
	OutcomeRejected  = "rejected"
	OutcomeSkipped   = "skipped"
)

type UnitOutcome struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type BatchResult struct {
	Outcomes  []UnitOutcome `json:"outcomes"`
	Fulfilled int           `json:"fulfilled"`
	Rejected  int           `json:"rejected"`
	Skipped   int           `json:"skipped"`
}

// Worker embeds queued messages and records their semantic context.
type Worker struct {
	repo     Repository
	embedder Embedder
	opts     WorkerOptions
	now      func() time.Time
}

func NewWorker(repo Repository, embedder Embedder, opts WorkerOptions) *Worker {
	if opts.MaxContextResults <= 0 {
		opts.MaxContextResults = 10
	}
	if opts.BatchSize <= 0 || opts.BatchSize > QueueBatchLimit {
		opts.BatchSize = QueueBatchLimit
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = time.Second
	}
	return &Worker{repo: repo, embedder: embedder, opts: opts, now: time.Now}
}

type preparedUnit struct {
	index   int
	unit    WorkUnit
	content string
	tokens  int
}

// Process embeds a batch in one backend call, then finishes each message independently.
// It returns ErrBatchFailed when any message was rejected; the others stay committed.
func (w *Worker) Process(ctx context.Context, units []WorkUnit) (*BatchResult, error) {
	ctx, span := observability.StartSpan(ctx, "embedding.ProcessBatch", observability.BatchSizeKey.Int(len(units)))
	defer span.End()

	result := &BatchResult{Outcomes: make([]UnitOutcome, len(units))}

	prepared := make([]preparedUnit, 0, len(units))
	var skipped []string
	for i, u := range units {
		content := TruncateToTokenLimit(u.Content(), w.opts.MaxTokens)
		if content == "" {
			result.Outcomes[i] = UnitOutcome{MessageID: u.MessageID, Status: OutcomeSkipped}
			skipped = append(skipped, u.MessageID)
			continue
		}
		prepared = append(prepared, preparedUnit{index: i, unit: u, content: content, tokens: EstimateTokens(content)})
	}
	if len(skipped) > 0 {
		if err := w.repo.ClearNeedsEmbedding(ctx, skipped); err != nil {
			log.Warn().Err(err).Strs("message_ids", skipped).Msg("failed to clear needs_embedding for empty units")
		}
	}

	if len(prepared) > 0 {
		vectors, err := w.embed(ctx, prepared)
		if err != nil {
			observability.RecordError(ctx, err)
			return nil, err
		}

		// Goroutines return nil on purpose: a rejected unit must not cancel its siblings.
		// Failures travel through result.Outcomes instead.
		var g errgroup.Group
		for i := range prepared {
			p := prepared[i]
			vector := vectors[i]
			g.Go(func() error {
				outcome := UnitOutcome{MessageID: p.unit.MessageID, Status: OutcomeFulfilled}
				if err := w.processOne(ctx, p, vector); err != nil {
					outcome.Status = OutcomeRejected
					outcome.Error = err.Error()
					log.Error().Err(err).Str("message_id", p.unit.MessageID).Msg("embedding unit rejected")
				}
				result.Outcomes[p.index] = outcome
				return nil
			})
		}
		_ = g.Wait() // always nil
	}

	for _, o := range result.Outcomes {
		metrics.RecordWorkerUnit(o.Status)
		switch o.Status {
		case OutcomeFulfilled:
			result.Fulfilled++
		case OutcomeRejected:
			result.Rejected++
		case OutcomeSkipped:
			result.Skipped++
		}
	}
	observability.AddSpanAttributes(ctx,
		attribute.Int("batch.fulfilled", result.Fulfilled),
		attribute.Int("batch.rejected", result.Rejected),
	)

	if result.Rejected > 0 {
		return result, fmt.Errorf("%w: %d of %d", ErrBatchFailed, result.Rejected, len(units))
	}
	return result, nil
}

func (w *Worker) embed(ctx context.Context, prepared []preparedUnit) ([][]float32, error) {
	inputs := make([]string, len(prepared))
	for i, p := range prepared {
		inputs[i] = p.content
	}

	vectors, err := w.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrEmbeddingCountMismatch, len(vectors), len(inputs))
	}
	if w.opts.Dimensions > 0 {
		for i, v := range vectors {
			if len(v) != w.opts.Dimensions {
				return nil, fmt.Errorf("%w: message %s got %d, want %d",
					ErrEmbeddingDimensionMismatch, prepared[i].unit.MessageID, len(v), w.opts.Dimensions)
			}
		}
	}
	return vectors, nil
}

// processOne runs neighbor lookup, heuristics and the upsert. Flag clearing and usage
// accounting are bookkeeping: their failures are logged and do not reject the unit.
func (w *Worker) processOne(ctx context.Context, p preparedUnit, vector []float32) error {
	anchor := p.unit.CreatedAt
	if anchor.IsZero() {
		anchor = w.now()
	}

	neighbors, err := w.repo.FindSimilarMessages(ctx, SimilarityQuery{
		WorkspaceID: p.unit.WorkspaceID,
		Vector:      vector,
		ExcludeID:   p.unit.MessageID,
		After:       anchor.Add(-w.opts.ContextWindow),
		Before:      anchor,
		Threshold:   w.opts.SimilarityThreshold,
		Limit:       w.opts.MaxContextResults,
	})
	if err != nil {
		return fmt.Errorf("find similar messages: %w", err)
	}

	ids := make([]string, len(neighbors))
	scores := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.MessageID
		scores[i] = n.Score
	}

	record := &MessageEmbedding{
		MessageID:        p.unit.MessageID,
		WorkspaceID:      p.unit.WorkspaceID,
		ChannelID:        p.unit.ChannelID,
		ConversationID:   p.unit.ConversationID,
		Embedding:        vector,
		Model:            w.opts.Model,
		ModelVersion:     w.opts.ModelVersion,
		ContextIDs:       ids,
		ContextScores:    scores,
		IsQuestion:       IsQuestion(p.content),
		IsShortAnswer:    IsShortAnswer(p.content),
		TokenCount:       p.tokens,
		MessageCreatedAt: p.unit.CreatedAt,
	}
	if err := w.repo.UpsertEmbedding(ctx, record); err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}

	if err := w.repo.ClearNeedsEmbedding(ctx, []string{p.unit.MessageID}); err != nil {
		log.Warn().Err(err).Str("message_id", p.unit.MessageID).Msg("failed to clear needs_embedding")
	}

	cost := EstimateCost(p.tokens, w.opts.PricePerMillionTokens)
	if err := w.repo.IncrementUsage(ctx, p.unit.WorkspaceID, UsageMonth(w.now()), 1, p.tokens, cost); err != nil {
		log.Warn().Err(err).Str("workspace_id", p.unit.WorkspaceID).Msg("failed to increment embedding usage")
	}
	return nil
}

// Run pulls batches until ctx is cancelled. Only batches with no rejected unit are acked, so
// anything else is redelivered by the queue.
func (w *Worker) Run(ctx context.Context, consumer Consumer) error {
	log.Info().Int("batch_size", w.opts.BatchSize).Msg("embedding worker started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("embedding worker stopped")
			return nil
		}

		deliveries, err := consumer.Receive(ctx, w.opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("failed to receive embedding jobs")
			w.sleep(ctx)
			continue
		}
		if len(deliveries) == 0 {
			continue
		}

		units := make([]WorkUnit, len(deliveries))
		for i, d := range deliveries {
			units[i] = d.Unit
		}

		if _, err := w.Process(ctx, units); err != nil {
			if errors.Is(err, ErrEmbeddingDimensionMismatch) {
				log.Error().Err(err).Int("dimensions", w.opts.Dimensions).Msg("embedding model does not match the stored vector size")
			}
			if !errors.Is(err, ErrBatchFailed) {
				w.sleep(ctx)
			}
			log.Warn().Err(err).Int("size", len(units)).Msg("embedding batch left for redelivery")
			continue
		}

		if err := consumer.Ack(ctx, deliveries); err != nil {
			log.Error().Err(err).Int("size", len(deliveries)).Msg("failed to ack embedding jobs")
		}
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.opts.ErrorBackoff):
	}
}
