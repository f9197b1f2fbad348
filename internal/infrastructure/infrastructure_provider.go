package infrastructure

import (
	"context"
	"io"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure/cache"
	"github.com/janhq/jan-workspace/internal/infrastructure/crontab"
	"github.com/janhq/jan-workspace/internal/infrastructure/database"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/repository"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/transaction"
	"github.com/janhq/jan-workspace/internal/infrastructure/embedder"
	"github.com/janhq/jan-workspace/internal/infrastructure/logger"
	"github.com/janhq/jan-workspace/internal/infrastructure/queue"
	"github.com/janhq/jan-workspace/internal/infrastructure/realtime"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*configs.Config, error) {
	return configs.Load()
}

// ProvideLogger installs the configured global logger.
func ProvideLogger(cfg *configs.Config) (zerolog.Logger, error) {
	return logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
	})
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *configs.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.GetDatabaseWriteDSN(),
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:    gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}

	// Run migrations if AUTO_MIGRATE is enabled
	if cfg.AutoMigrate {
		if _, err := database.AutoMigrate(context.Background(), db); err != nil {
			log.Error().Err(err).Msg("workspace schema migration failed")
			return nil, err
		}
	}

	return db, nil
}

// ProvideTransactionDatabase provides a transaction database wrapper
func ProvideTransactionDatabase(db *gorm.DB) *transaction.Database {
	return transaction.NewDatabase(db)
}

func ProvideQueue(cfg *configs.Config, log zerolog.Logger) (queue.Queue, error) {
	return queue.New(context.Background(), cfg, log)
}

func ProvidePublisher(q queue.Queue) embedding.Publisher {
	return q
}

func ProvideConsumer(q queue.Queue) embedding.Consumer {
	return q
}

func ProvideBroadcaster(cfg *configs.Config, log zerolog.Logger) (notification.Broadcaster, error) {
	return realtime.New(cfg, log)
}

// ProvideEmbedder returns the raw backend used by the worker.
func ProvideEmbedder(cfg *configs.Config) (embedding.Embedder, error) {
	return embedder.New(cfg)
}

func ProvideEmbeddingCache(cfg *configs.Config) (cache.Cache, error) {
	return cache.NewCache(cache.Config{
		Type:      cfg.EmbeddingCacheType,
		RedisURL:  cfg.EmbeddingCacheRedisURL,
		KeyPrefix: cfg.EmbeddingCacheKeyPrefix,
		MaxSize:   cfg.EmbeddingCacheMaxSize,
		TTL:       cfg.EmbeddingCacheTTL,
	})
}

// ProvideCachedEmbedder wraps the backend for query-time lookups.
func ProvideCachedEmbedder(next embedding.Embedder, c cache.Cache, cfg *configs.Config) *cache.CachedEmbedder {
	return cache.NewCachedEmbedder(next, c, cfg.EmbeddingModel)
}

func ProvideCrontab(sweeper *embedding.Sweeper, cfg *configs.Config) *crontab.Crontab {
	return crontab.NewCrontab(sweeper, crontab.Options{
		Enabled:  cfg.EmbeddingSweepEnabled,
		Schedule: cfg.EmbeddingSweepCron,
		Timeout:  cfg.EmbeddingSweepTimeout,
	})
}

// Infrastructure holds the long-lived resources the application closes on shutdown.
type Infrastructure struct {
	DB          *gorm.DB
	Queue       queue.Queue
	Broadcaster notification.Broadcaster
	Cache       cache.Cache
	Logger      zerolog.Logger
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(
	db *gorm.DB,
	q queue.Queue,
	broadcaster notification.Broadcaster,
	c cache.Cache,
	logger zerolog.Logger,
) *Infrastructure {
	return &Infrastructure{
		DB:          db,
		Queue:       q,
		Broadcaster: broadcaster,
		Cache:       c,
		Logger:      logger,
	}
}

// Ready reports whether the database answers; used by /readyz.
func (i *Infrastructure) Ready(ctx context.Context) error {
	return database.Ping(ctx, i.DB)
}

func (i *Infrastructure) Close() {
	if err := queue.Close(i.Queue); err != nil {
		i.Logger.Warn().Err(err).Msg("close queue")
	}
	if err := realtime.Close(i.Broadcaster); err != nil {
		i.Logger.Warn().Err(err).Msg("close realtime broadcaster")
	}
	if c, ok := i.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			i.Logger.Warn().Err(err).Msg("close embedding cache")
		}
	}
	if sqlDB, err := i.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,
	ProvideLogger,

	// Database
	ProvideDatabase,
	ProvideTransactionDatabase,

	// Repositories
	repository.RepositoryProvider,

	// Queue
	ProvideQueue,
	ProvidePublisher,
	ProvideConsumer,

	// Realtime
	ProvideBroadcaster,

	// Embeddings
	ProvideEmbedder,
	ProvideEmbeddingCache,
	ProvideCachedEmbedder,

	// Crontab for the embedding sweep
	ProvideCrontab,

	// Infrastructure struct
	NewInfrastructure,
)
