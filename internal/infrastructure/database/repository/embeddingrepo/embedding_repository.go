package embeddingrepo

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/infrastructure/database"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/dbschema"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/transaction"
	"github.com/janhq/jan-workspace/internal/metrics"
)

type EmbeddingGormRepository struct {
	db *transaction.Database
}

var (
	_ embedding.Repository      = (*EmbeddingGormRepository)(nil)
	_ embedding.MessageSearcher = (*EmbeddingGormRepository)(nil)
)

func NewEmbeddingGormRepository(db *transaction.Database) *EmbeddingGormRepository {
	return &EmbeddingGormRepository{db: db}
}

// ListPendingMessages implements embedding.Repository.
func (repo *EmbeddingGormRepository) ListPendingMessages(ctx context.Context, after *embedding.Cursor, limit int) ([]*embedding.PendingMessage, error) {
	var rows []dbschema.Message
	if err := pendingMessagesQuery(repo.db.GetTx(ctx), after, limit).Find(&rows).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list pending messages")
	}

	result := make([]*embedding.PendingMessage, len(rows))
	for i := range rows {
		result[i] = rows[i].ToPending()
	}
	return result, nil
}

// pendingMessagesQuery pages with a (created_at, id) row-value cursor so rows sharing a
// timestamp are neither skipped nor repeated.
func pendingMessagesQuery(tx *gorm.DB, after *embedding.Cursor, limit int) *gorm.DB {
	query := tx.
		Model(&dbschema.Message{}).
		Where("needs_embedding AND deleted_at IS NULL")
	if after != nil {
		query = query.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}
	return query.
		Order("created_at ASC, id ASC").
		Limit(limit)
}

// ClearNeedsEmbedding implements embedding.Repository.
func (repo *EmbeddingGormRepository) ClearNeedsEmbedding(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	err := repo.db.GetTx(ctx).
		Model(&dbschema.Message{}).
		Where("id IN ?", messageIDs).
		Update("needs_embedding", false).Error
	return database.AsRepositoryError(ctx, err, "failed to clear needs_embedding")
}

// FindSimilarMessages implements embedding.Repository. Score is cosine similarity.
func (repo *EmbeddingGormRepository) FindSimilarMessages(ctx context.Context, q embedding.SimilarityQuery) ([]embedding.SimilarMessage, error) {
	start := time.Now()
	defer func() { metrics.RecordVectorSearch(time.Since(start).Seconds()) }()

	vector := pgvector.NewVector(q.Vector)
	var rows []dbschema.SimilarMessageRow
	err := repo.db.GetTx(ctx).Raw(`
		SELECT e.message_id,
		       1 - (e.embedding <=> ?) AS score,
		       e.message_created_at AS created_at,
		       e.channel_id,
		       e.conversation_id
		FROM message_embeddings AS e
		JOIN messages AS m ON m.id = e.message_id AND m.deleted_at IS NULL
		WHERE e.workspace_id = ?
		  AND e.message_id <> ?
		  AND e.message_created_at >= ?
		  AND e.message_created_at < ?
		  AND 1 - (e.embedding <=> ?) >= ?
		ORDER BY e.embedding <=> ? ASC
		LIMIT ?
	`, vector, q.WorkspaceID, q.ExcludeID, q.After, q.Before, vector, q.Threshold, vector, q.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to find similar messages")
	}
	return toSimilar(rows), nil
}

// SearchMessages implements embedding.MessageSearcher.
func (repo *EmbeddingGormRepository) SearchMessages(ctx context.Context, workspaceID string, vector []float32, limit int) ([]embedding.SimilarMessage, error) {
	start := time.Now()
	defer func() { metrics.RecordVectorSearch(time.Since(start).Seconds()) }()

	v := pgvector.NewVector(vector)
	var rows []dbschema.SimilarMessageRow
	err := repo.db.GetTx(ctx).Raw(`
		SELECT e.message_id,
		       1 - (e.embedding <=> ?) AS score,
		       e.message_created_at AS created_at,
		       e.channel_id,
		       e.conversation_id
		FROM message_embeddings AS e
		JOIN messages AS m ON m.id = e.message_id AND m.deleted_at IS NULL
		WHERE e.workspace_id = ?
		ORDER BY e.embedding <=> ? ASC
		LIMIT ?
	`, v, workspaceID, v, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to search messages")
	}
	return toSimilar(rows), nil
}

// UpsertEmbedding implements embedding.Repository.
func (repo *EmbeddingGormRepository) UpsertEmbedding(ctx context.Context, e *embedding.MessageEmbedding) error {
	row := dbschema.NewSchemaMessageEmbedding(e)
	err := repo.db.GetTx(ctx).Clauses(upsertEmbeddingClause).Create(row).Error
	return database.AsRepositoryError(ctx, err, "failed to upsert message embedding")
}

// upsertEmbeddingClause replaces the vector and its context on redelivery. Scope columns and
// created_at keep their first values.
var upsertEmbeddingClause = clause.OnConflict{
	Columns: []clause.Column{{Name: "message_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"embedding",
		"model",
		"model_version",
		"context_message_ids",
		"context_scores",
		"is_question",
		"is_short_answer",
		"token_count",
		"updated_at",
	}),
}

// IncrementUsage implements embedding.Repository.
func (repo *EmbeddingGormRepository) IncrementUsage(ctx context.Context, workspaceID, month string, embeddings, tokens int, cost decimal.Decimal) error {
	row := &dbschema.WorkspaceEmbeddingUsage{
		WorkspaceID:       workspaceID,
		Month:             month,
		EmbeddingsCreated: int64(embeddings),
		TokensUsed:        int64(tokens),
		EstimatedCost:     cost,
	}
	err := repo.db.GetTx(ctx).Clauses(incrementUsageClause).Create(row).Error
	return database.AsRepositoryError(ctx, err, "failed to increment embedding usage")
}

// incrementUsageClause adds to the month's counters instead of overwriting them.
var incrementUsageClause = clause.OnConflict{
	Columns: []clause.Column{{Name: "workspace_id"}, {Name: "month"}},
	DoUpdates: clause.Assignments(map[string]any{
		"embeddings_created": gorm.Expr("workspace_embedding_usage.embeddings_created + EXCLUDED.embeddings_created"),
		"tokens_used":        gorm.Expr("workspace_embedding_usage.tokens_used + EXCLUDED.tokens_used"),
		"estimated_cost":     gorm.Expr("workspace_embedding_usage.estimated_cost + EXCLUDED.estimated_cost"),
		"updated_at":         gorm.Expr("now()"),
	}),
}

// GetUsage implements embedding.Repository.
func (repo *EmbeddingGormRepository) GetUsage(ctx context.Context, workspaceID, month string) (*embedding.Usage, error) {
	var row dbschema.WorkspaceEmbeddingUsage
	err := repo.db.GetTx(ctx).
		Where("workspace_id = ? AND month = ?", workspaceID, month).
		Take(&row).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to load embedding usage")
	}
	return row.EtoD(), nil
}

func toSimilar(rows []dbschema.SimilarMessageRow) []embedding.SimilarMessage {
	result := make([]embedding.SimilarMessage, len(rows))
	for i, row := range rows {
		result[i] = row.EtoD()
	}
	return result
}
