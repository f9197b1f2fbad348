package embedding

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
	"github.com/janhq/jan-workspace/internal/metrics"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

type SweepOptions struct {
	BatchSize         int
	MaxMessagesPerRun int
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Pages            int      `json:"pages"`
	Scanned          int      `json:"scanned"`
	Skipped          int      `json:"skipped_empty"`
	Processed        int      `json:"processed"`
	Workspaces       int      `json:"workspaces"`
	BatchesSent      int      `json:"batches_sent"`
	Failures         int      `json:"failures"`
	FailedMessageIDs []string `json:"failed_message_ids,omitempty"`
}

// Sweeper finds messages that still need an embedding and publishes them to the work queue.
type Sweeper struct {
	repo      Repository
	publisher Publisher
	opts      SweepOptions
}

func NewSweeper(repo Repository, publisher Publisher, opts SweepOptions) *Sweeper {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxMessagesPerRun <= 0 {
		opts.MaxMessagesPerRun = 1000
	}
	return &Sweeper{repo: repo, publisher: publisher, opts: opts}
}

// Sweep runs one pass. A failed page query aborts the pass; a failed queue send only counts
// its entries as failures and the next sub-batch is still sent.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx, span := observability.StartSpan(ctx, "embedding.Sweep",
		attribute.Int("sweep.max_messages", s.opts.MaxMessagesPerRun),
	)
	defer span.End()

	result := &SweepResult{}

	pending, err := s.collect(ctx, result)
	if err != nil {
		observability.RecordError(ctx, err)
		metrics.RecordSweep("error", 0, 0, 0)
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list messages needing embedding")
	}

	work := make([]*PendingMessage, 0, len(pending))
	var empty []string
	for _, m := range pending {
		if messageContent(m) == "" {
			empty = append(empty, m.ID)
			continue
		}
		work = append(work, m)
	}
	result.Skipped = len(empty)
	if len(empty) > 0 {
		if err := s.repo.ClearNeedsEmbedding(ctx, empty); err != nil {
			log.Warn().Err(err).Int("count", len(empty)).Msg("failed to clear needs_embedding for empty messages")
		}
	}

	grouped, workspaces := groupByWorkspace(work)
	result.Workspaces = workspaces

	for start := 0; start < len(grouped); start += QueueBatchLimit {
		end := min(start+QueueBatchLimit, len(grouped))
		chunk := grouped[start:end]

		batch := make([]QueueMessage, len(chunk))
		for i, m := range chunk {
			batch[i] = toQueueMessage(m)
		}

		failedIDs, err := s.publisher.PublishBatch(ctx, batch)
		result.BatchesSent++
		if err != nil {
			log.Error().Err(err).Int("batch", result.BatchesSent).Int("size", len(batch)).Msg("queue send failed")
			for _, m := range chunk {
				result.FailedMessageIDs = append(result.FailedMessageIDs, m.ID)
			}
			result.Failures += len(chunk)
			continue
		}
		if len(failedIDs) > 0 {
			log.Warn().Strs("message_ids", failedIDs).Msg("queue rejected entries")
			result.FailedMessageIDs = append(result.FailedMessageIDs, failedIDs...)
			result.Failures += len(failedIDs)
		}
		result.Processed += len(chunk) - len(failedIDs)
	}

	observability.AddSpanAttributes(ctx,
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.processed", result.Processed),
		attribute.Int("sweep.failures", result.Failures),
	)
	metrics.RecordSweep("success", result.Processed, result.BatchesSent, result.Failures)

	log.Info().
		Int("pages", result.Pages).
		Int("scanned", result.Scanned).
		Int("processed", result.Processed).
		Int("workspaces", result.Workspaces).
		Int("batches", result.BatchesSent).
		Int("failures", result.Failures).
		Msg("embedding sweep finished")

	return result, nil
}

// collect pages with a (created_at, id) keyset cursor until a short page or the per-run cap.
func (s *Sweeper) collect(ctx context.Context, result *SweepResult) ([]*PendingMessage, error) {
	var (
		out    []*PendingMessage
		cursor *Cursor
	)
	for result.Scanned < s.opts.MaxMessagesPerRun {
		limit := min(s.opts.BatchSize, s.opts.MaxMessagesPerRun-result.Scanned)

		page, err := s.repo.ListPendingMessages(ctx, cursor, limit)
		if err != nil {
			return nil, err
		}
		result.Pages++
		result.Scanned += len(page)
		out = append(out, page...)

		if len(page) < limit {
			break
		}
		last := page[len(page)-1]
		cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return out, nil
}

// groupByWorkspace orders messages by workspace in first-seen order, keeping order within a workspace.
func groupByWorkspace(messages []*PendingMessage) ([]*PendingMessage, int) {
	var order []string
	groups := make(map[string][]*PendingMessage)
	for _, m := range messages {
		if _, ok := groups[m.WorkspaceID]; !ok {
			order = append(order, m.WorkspaceID)
		}
		groups[m.WorkspaceID] = append(groups[m.WorkspaceID], m)
	}

	out := make([]*PendingMessage, 0, len(messages))
	for _, ws := range order {
		out = append(out, groups[ws]...)
	}
	return out, len(order)
}

func toQueueMessage(m *PendingMessage) QueueMessage {
	scope := ScopeChannel
	if m.ChannelID == nil && m.ConversationID != nil {
		scope = ScopeConversation
	}
	return QueueMessage{
		ID: m.ID,
		Unit: WorkUnit{
			MessageID:      m.ID,
			WorkspaceID:    m.WorkspaceID,
			ChannelID:      m.ChannelID,
			ConversationID: m.ConversationID,
			CreatedAt:      m.CreatedAt,
			Body:           m.Body,
			Text:           m.Text,
		},
		Attributes: map[string]string{
			AttrWorkspaceID:   m.WorkspaceID,
			AttrScope:         scope,
			AttrIsThreadReply: strconv.FormatBool(m.ParentMessageID != nil),
		},
	}
}

func messageContent(m *PendingMessage) string {
	if m.Text != nil {
		return strings.TrimSpace(*m.Text)
	}
	return strings.TrimSpace(m.Body)
}
