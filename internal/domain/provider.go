package domain

import (
	"github.com/google/wire"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/mention"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure/cache"
)

var ServiceProvider = wire.NewSet(
	// Notification domain
	mention.NewResolver,
	ProvideNotificationService,

	// Embedding domain
	ProvideSweeper,
	ProvideWorker,
	ProvideQueryService,
)

func ProvideNotificationService(repo notification.Repository, resolver *mention.Resolver, broadcaster notification.Broadcaster, cfg *configs.Config) *notification.Service {
	return notification.NewService(repo, resolver, broadcaster, notification.ServiceOptions{
		BroadcastTimeout: cfg.BroadcastTimeout,
	})
}

func ProvideSweeper(repo embedding.Repository, publisher embedding.Publisher, cfg *configs.Config) *embedding.Sweeper {
	return embedding.NewSweeper(repo, publisher, embedding.SweepOptions{
		BatchSize:         cfg.BatchSize,
		MaxMessagesPerRun: cfg.MaxMessagesPerRun,
	})
}

func ProvideWorker(repo embedding.Repository, embedder embedding.Embedder, cfg *configs.Config) *embedding.Worker {
	return embedding.NewWorker(repo, embedder, embedding.WorkerOptions{
		Model:                 cfg.EmbeddingModel,
		ModelVersion:          cfg.EmbeddingModelVersion,
		Dimensions:            cfg.EmbeddingDimensions,
		MaxTokens:             cfg.ModelMaxTokens,
		SimilarityThreshold:   cfg.SimilarityThreshold,
		ContextWindow:         cfg.ContextWindow(),
		MaxContextResults:     cfg.ContextMaxResults,
		PricePerMillionTokens: cfg.PricePerMillionTokens,
		BatchSize:             cfg.WorkerBatchSize,
	})
}

// ProvideQueryService uses the cached embedder; repeated search queries skip the backend.
func ProvideQueryService(repo embedding.Repository, searcher embedding.MessageSearcher, cached *cache.CachedEmbedder, cfg *configs.Config) *embedding.QueryService {
	return embedding.NewQueryService(repo, searcher, cached, cfg.ModelMaxTokens)
}
