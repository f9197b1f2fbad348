package queue

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
)

// Queue is both ends of the embedding work queue.
type Queue interface {
	embedding.Publisher
	embedding.Consumer
}

// New opens the backend selected by QUEUE_BACKEND.
func New(ctx context.Context, cfg *configs.Config, log zerolog.Logger) (Queue, error) {
	switch cfg.QueueBackend {
	case configs.QueueBackendSQS:
		return NewSQSQueue(ctx, cfg, log)
	case configs.QueueBackendRedis:
		return NewRedisStreamQueue(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

// Close releases the queue's connections when it holds any.
func Close(q Queue) error {
	if c, ok := q.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
