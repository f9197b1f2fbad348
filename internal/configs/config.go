package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

var global *Config

const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderTEI    = "tei"

	QueueBackendSQS   = "sqs"
	QueueBackendRedis = "redis"

	RealtimeBackendRedis   = "redis"
	RealtimeBackendLiveKit = "livekit"
	RealtimeBackendLog     = "log"

	// StoredEmbeddingDimensions is the size of message_embeddings.embedding (vector(1536)).
	StoredEmbeddingDimensions = 1536
)

type Config struct {
	HTTPPort int `env:"HTTP_PORT" envDefault:"8095"`

	// Database (write DSN required, no default)
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN,notEmpty"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBConnMaxLifetime    time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	AutoMigrate          bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Embedding backend
	EmbeddingProvider       string  `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey            string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL           string  `env:"OPENAI_BASE_URL"`
	TEIURL                  string  `env:"TEI_URL" envDefault:"http://localhost:8091"`
	TEIAPIKey               string  `env:"TEI_API_KEY"`
	EmbeddingModel          string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingModelVersion   string  `env:"EMBEDDING_MODEL_VERSION" envDefault:"1"`
	EmbeddingDimensions     int     `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	ModelMaxTokens          int     `env:"MODEL_MAX_TOKENS" envDefault:"8191"`
	PricePerMillionTokens   float64 `env:"EMBEDDING_PRICE_PER_MILLION_TOKENS" envDefault:"0.02"`

	EmbeddingRequestTimeout time.Duration `env:"EMBEDDING_REQUEST_TIMEOUT" envDefault:"30s"`

	// Query-time embedding cache
	EmbeddingCacheType      string        `env:"EMBEDDING_CACHE_TYPE" envDefault:"memory"`
	EmbeddingCacheTTL       time.Duration `env:"EMBEDDING_CACHE_TTL" envDefault:"1h"`
	EmbeddingCacheMaxSize   int           `env:"EMBEDDING_CACHE_MAX_SIZE" envDefault:"10000"`
	EmbeddingCacheRedisURL  string        `env:"EMBEDDING_CACHE_REDIS_URL" envDefault:"redis://redis:6379/3"`
	EmbeddingCacheKeyPrefix string        `env:"EMBEDDING_CACHE_KEY_PREFIX" envDefault:"emb:"`

	// Embedding sweep
	BatchSize             int           `env:"BATCH_SIZE" envDefault:"100"`
	MaxMessagesPerRun     int           `env:"MAX_MESSAGES_PER_RUN" envDefault:"1000"`
	EmbeddingSweepEnabled bool          `env:"EMBEDDING_SWEEP_ENABLED" envDefault:"true"`
	EmbeddingSweepCron    string        `env:"EMBEDDING_SWEEP_SCHEDULE" envDefault:"*/5 * * * *"`
	EmbeddingSweepTimeout time.Duration `env:"EMBEDDING_SWEEP_TIMEOUT" envDefault:"10m"`

	// Semantic context linking
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`
	ContextWindowHours  int     `env:"CONTEXT_WINDOW_HOURS" envDefault:"48"`
	ContextMaxResults   int     `env:"CONTEXT_MAX_RESULTS" envDefault:"10"`

	// Work queue
	QueueBackend        string        `env:"QUEUE_BACKEND" envDefault:"sqs"`
	SQSQueueURL         string        `env:"SQS_QUEUE_URL"`
	SQSEndpoint         string        `env:"SQS_ENDPOINT"`
	AWSRegion           string        `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID      string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string        `env:"AWS_SECRET_ACCESS_KEY"`
	RedisQueueURL       string        `env:"REDIS_QUEUE_URL" envDefault:"redis://redis:6379/4"`
	RedisQueueStream    string        `env:"REDIS_QUEUE_STREAM" envDefault:"embedding-jobs"`
	RedisQueueGroup     string        `env:"REDIS_QUEUE_GROUP" envDefault:"embedding-workers"`
	RedisQueueClaimIdle time.Duration `env:"REDIS_QUEUE_CLAIM_IDLE" envDefault:"5m"`
	WorkerEnabled       bool          `env:"WORKER_ENABLED" envDefault:"true"`
	WorkerBatchSize     int           `env:"WORKER_BATCH_SIZE" envDefault:"10"`
	WorkerPollWait      time.Duration `env:"WORKER_POLL_WAIT" envDefault:"20s"`

	// Realtime broadcast
	RealtimeBackend  string        `env:"REALTIME_BACKEND" envDefault:"redis"`
	RealtimeRedisURL string        `env:"REALTIME_REDIS_URL" envDefault:"redis://redis:6379/0"`
	LiveKitURL       string        `env:"LIVEKIT_URL"`
	LiveKitAPIKey    string        `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret string        `env:"LIVEKIT_API_SECRET"`
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"5s"`

	// HTTP
	APIKey         string        `env:"SERVICE_API_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Observability / Logging
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
	LogContentLevel  string `env:"LOG_CONTENT_LEVEL" envDefault:"hashed"` // none|hashed|full
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"jan-workspace"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))
	cfg.QueueBackend = strings.ToLower(strings.TrimSpace(cfg.QueueBackend))
	cfg.RealtimeBackend = strings.ToLower(strings.TrimSpace(cfg.RealtimeBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	global = cfg
	return cfg, nil
}

func GetGlobal() *Config {
	return global
}

// Validate rejects configurations the sweep, worker or broadcaster cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxMessagesPerRun <= 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_RUN must be positive, got %d", c.MaxMessagesPerRun)
	}
	if c.ModelMaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be positive, got %d", c.ModelMaxTokens)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,1], got %v", c.SimilarityThreshold)
	}
	if c.ContextWindowHours <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW_HOURS must be positive, got %d", c.ContextWindowHours)
	}
	if c.WorkerBatchSize <= 0 || c.WorkerBatchSize > 10 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be within [1,10], got %d", c.WorkerBatchSize)
	}

	if c.EmbeddingDimensions != StoredEmbeddingDimensions {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be %d to match the embedding column, got %d", StoredEmbeddingDimensions, c.EmbeddingDimensions)
	}

	switch c.EmbeddingProvider {
	case EmbeddingProviderOpenAI, EmbeddingProviderTEI:
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	switch c.QueueBackend {
	case QueueBackendSQS:
		if strings.TrimSpace(c.SQSQueueURL) == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when QUEUE_BACKEND=sqs")
		}
	case QueueBackendRedis:
		if strings.TrimSpace(c.RedisQueueURL) == "" {
			return fmt.Errorf("REDIS_QUEUE_URL is required when QUEUE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}

	switch c.RealtimeBackend {
	case RealtimeBackendRedis, RealtimeBackendLog:
	case RealtimeBackendLiveKit:
		if c.LiveKitURL == "" || c.LiveKitAPIKey == "" || c.LiveKitAPISecret == "" {
			return fmt.Errorf("LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required when REALTIME_BACKEND=livekit")
		}
	default:
		return fmt.Errorf("unknown REALTIME_BACKEND %q", c.RealtimeBackend)
	}

	return nil
}

// GetDatabaseWriteDSN returns the write database connection string.
func (c *Config) GetDatabaseWriteDSN() string {
	return c.DBPostgresqlWriteDSN
}

// ContextWindow is the look-back window for semantic neighbor linking.
func (c *Config) ContextWindow() time.Duration {
	return time.Duration(c.ContextWindowHours) * time.Hour
}
