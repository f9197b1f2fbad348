package embedding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrBatchFailed means at least one unit of a worker batch was rejected and the batch should be redelivered.
	ErrBatchFailed = errors.New("embedding batch had rejected units")
	// ErrEmbeddingCountMismatch means the backend returned a different number of vectors than inputs.
	ErrEmbeddingCountMismatch = errors.New("embedding backend returned a mismatched vector count")
	// ErrEmbeddingDimensionMismatch means a vector does not fit the stored embedding column.
	ErrEmbeddingDimensionMismatch = errors.New("embedding backend returned vectors of the wrong dimension")
)

// QueueBatchLimit is the maximum number of entries one queue send call accepts.
const QueueBatchLimit = 10

// ===============================================
// Messages and work units
// ===============================================

// PendingMessage is a message still flagged needs_embedding.
type PendingMessage struct {
	ID              string
	WorkspaceID     string
	ChannelID       *string
	ConversationID  *string
	ParentMessageID *string
	Body            string
	Text            *string
	CreatedAt       time.Time
}

// Cursor is the keyset position of the sweep: the last seen (created_at, id).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// WorkUnit is the queue payload for one message.
type WorkUnit struct {
	MessageID      string    `json:"message_id"`
	WorkspaceID    string    `json:"workspace_id"`
	ChannelID      *string   `json:"channel_id,omitempty"`
	ConversationID *string   `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Body           string    `json:"body"`
	Text           *string   `json:"text,omitempty"`
}

// Content is the text that gets embedded: the pre-extracted text when present, else the body, trimmed.
func (u WorkUnit) Content() string {
	if u.Text != nil {
		return strings.TrimSpace(*u.Text)
	}
	return strings.TrimSpace(u.Body)
}

const (
	AttrWorkspaceID   = "workspace_id"
	AttrScope         = "scope"
	AttrIsThreadReply = "is_thread_reply"

	ScopeChannel      = "channel"
	ScopeConversation = "conversation"
)

// QueueMessage is one entry of a queue send batch. ID is unique within the batch.
type QueueMessage struct {
	ID         string
	Unit       WorkUnit
	Attributes map[string]string
}

// Delivery is a received queue entry. Handle is opaque to the worker and used to ack.
type Delivery struct {
	Handle string
	Unit   WorkUnit
}

// ===============================================
// Stored embeddings
// ===============================================

type MessageEmbedding struct {
	MessageID        string
	WorkspaceID      string
	ChannelID        *string
	ConversationID   *string
	Embedding        []float32
	Model            string
	ModelVersion     string
	ContextIDs       []string
	ContextScores    []float64
	IsQuestion       bool
	IsShortAnswer    bool
	TokenCount       int
	MessageCreatedAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SimilarMessage is one ranked neighbor returned by the vector search.
type SimilarMessage struct {
	MessageID      string    `json:"message_id"`
	Score          float64   `json:"score"`
	CreatedAt      time.Time `json:"created_at"`
	ChannelID      *string   `json:"channel_id,omitempty"`
	ConversationID *string   `json:"conversation_id,omitempty"`
}

// SimilarityQuery restricts a neighbor lookup to prior messages of one workspace.
type SimilarityQuery struct {
	WorkspaceID string
	Vector      []float32
	ExcludeID   string
	After       time.Time
	Before      time.Time
	Threshold   float64
	Limit       int
}

// Usage is the monthly embedding consumption of a workspace.
type Usage struct {
	WorkspaceID       string          `json:"workspace_id"`
	Month             string          `json:"month"`
	EmbeddingsCreated int64           `json:"embeddings_created"`
	TokensUsed        int64           `json:"tokens_used"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// UsageMonth formats t as the usage bucket key (YYYY-MM, UTC).
func UsageMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// EstimateCost prices tokens at pricePerMillion per 1,000,000 tokens.
func EstimateCost(tokens int, pricePerMillion float64) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).
		Div(decimal.NewFromInt(1_000_000)).
		Mul(decimal.NewFromFloat(pricePerMillion))
}

// ===============================================
// Collaborators
// ===============================================

type Repository interface {
	// ListPendingMessages pages through live messages flagged needs_embedding ordered by (created_at, id).
	ListPendingMessages(ctx context.Context, after *Cursor, limit int) ([]*PendingMessage, error)
	ClearNeedsEmbedding(ctx context.Context, messageIDs []string) error
	FindSimilarMessages(ctx context.Context, query SimilarityQuery) ([]SimilarMessage, error)
	// UpsertEmbedding inserts or replaces the row keyed by message id.
	UpsertEmbedding(ctx context.Context, e *MessageEmbedding) error
	// IncrementUsage atomically adds to the month's counters, creating the row if needed.
	IncrementUsage(ctx context.Context, workspaceID, month string, embeddings, tokens int, cost decimal.Decimal) error
	GetUsage(ctx context.Context, workspaceID, month string) (*Usage, error)
}

// Embedder turns an ordered list of inputs into order-matched vectors in one call.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Publisher sends at most QueueBatchLimit messages and returns the ids of entries that failed.
type Publisher interface {
	PublishBatch(ctx context.Context, messages []QueueMessage) (failedIDs []string, err error)
}

// Consumer is the pull side of the work queue.
type Consumer interface {
	Receive(ctx context.Context, max int) ([]Delivery, error)
	Ack(ctx context.Context, deliveries []Delivery) error
}
