package dbschema

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
)

// ===============================================
// MessageEmbedding Schema
// ===============================================

type MessageEmbedding struct {
	ID                string          `gorm:"primaryKey;type:text"`
	MessageID         string          `gorm:"type:text;uniqueIndex;not null"`
	WorkspaceID       string          `gorm:"type:text;not null"`
	ChannelID         *string         `gorm:"type:text"`
	ConversationID    *string         `gorm:"type:text"`
	Embedding         pgvector.Vector `gorm:"type:vector(1536);not null"`
	Model             string          `gorm:"type:text;not null"`
	ModelVersion      string          `gorm:"type:text;not null"`
	ContextMessageIDs pq.StringArray  `gorm:"type:text[]"`
	ContextScores     pq.Float64Array `gorm:"type:double precision[]"`
	IsQuestion        bool
	IsShortAnswer     bool
	TokenCount        int
	MessageCreatedAt  time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (MessageEmbedding) TableName() string {
	return "message_embeddings"
}

func NewSchemaMessageEmbedding(e *embedding.MessageEmbedding) *MessageEmbedding {
	ids := e.ContextIDs
	if ids == nil {
		ids = []string{}
	}
	scores := e.ContextScores
	if scores == nil {
		scores = []float64{}
	}
	return &MessageEmbedding{
		ID:                uuid.NewString(),
		MessageID:         e.MessageID,
		WorkspaceID:       e.WorkspaceID,
		ChannelID:         e.ChannelID,
		ConversationID:    e.ConversationID,
		Embedding:         pgvector.NewVector(e.Embedding),
		Model:             e.Model,
		ModelVersion:      e.ModelVersion,
		ContextMessageIDs: pq.StringArray(ids),
		ContextScores:     pq.Float64Array(scores),
		IsQuestion:        e.IsQuestion,
		IsShortAnswer:     e.IsShortAnswer,
		TokenCount:        e.TokenCount,
		MessageCreatedAt:  e.MessageCreatedAt,
	}
}

func (m *MessageEmbedding) EtoD() *embedding.MessageEmbedding {
	return &embedding.MessageEmbedding{
		MessageID:        m.MessageID,
		WorkspaceID:      m.WorkspaceID,
		ChannelID:        m.ChannelID,
		ConversationID:   m.ConversationID,
		Embedding:        m.Embedding.Slice(),
		Model:            m.Model,
		ModelVersion:     m.ModelVersion,
		ContextIDs:       []string(m.ContextMessageIDs),
		ContextScores:    []float64(m.ContextScores),
		IsQuestion:       m.IsQuestion,
		IsShortAnswer:    m.IsShortAnswer,
		TokenCount:       m.TokenCount,
		MessageCreatedAt: m.MessageCreatedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// SimilarMessageRow is one row of a similarity query.
type SimilarMessageRow struct {
	MessageID      string
	Score          float64
	CreatedAt      time.Time
	ChannelID      *string
	ConversationID *string
}

func (r SimilarMessageRow) EtoD() embedding.SimilarMessage {
	return embedding.SimilarMessage{
		MessageID:      r.MessageID,
		Score:          r.Score,
		CreatedAt:      r.CreatedAt,
		ChannelID:      r.ChannelID,
		ConversationID: r.ConversationID,
	}
}

// ===============================================
// WorkspaceEmbeddingUsage Schema
// ===============================================

type WorkspaceEmbeddingUsage struct {
	WorkspaceID       string          `gorm:"primaryKey;type:text"`
	Month             string          `gorm:"primaryKey;type:char(7)"`
	EmbeddingsCreated int64           `gorm:"not null;default:0"`
	TokensUsed        int64           `gorm:"not null;default:0"`
	EstimatedCost     decimal.Decimal `gorm:"type:numeric(18,8);not null;default:0"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime"`
}

func (WorkspaceEmbeddingUsage) TableName() string {
	return "workspace_embedding_usage"
}

func (u *WorkspaceEmbeddingUsage) EtoD() *embedding.Usage {
	return &embedding.Usage{
		WorkspaceID:       u.WorkspaceID,
		Month:             u.Month,
		EmbeddingsCreated: u.EmbeddingsCreated,
		TokensUsed:        u.TokensUsed,
		EstimatedCost:     u.EstimatedCost,
		UpdatedAt:         u.UpdatedAt,
	}
}
