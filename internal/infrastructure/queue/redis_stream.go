package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/infrastructure/redisconn"
)

const (
	fieldUnit       = "unit"
	fieldAttrPrefix = "attr:"
)

// RedisStreamQueue is the self-hosted work queue: one stream, one consumer group.
// Entries left pending by a dead consumer are reclaimed after ClaimIdle.
type RedisStreamQueue struct {
	client    redis.UniversalClient
	stream    string
	group     string
	consumer  string
	block     time.Duration
	claimIdle time.Duration
	log       zerolog.Logger
}

var (
	_ embedding.Publisher = (*RedisStreamQueue)(nil)
	_ embedding.Consumer  = (*RedisStreamQueue)(nil)
)

func NewRedisStreamQueue(ctx context.Context, cfg *configs.Config, log zerolog.Logger) (*RedisStreamQueue, error) {
	client, err := redisconn.NewClient(cfg.RedisQueueURL)
	if err != nil {
		return nil, err
	}
	q := newRedisStreamQueue(client, cfg.RedisQueueStream, cfg.RedisQueueGroup, consumerName(), cfg.WorkerPollWait, cfg.RedisQueueClaimIdle, log)
	if err := q.ensureGroup(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return q, nil
}

func newRedisStreamQueue(client redis.UniversalClient, stream, group, consumer string, block, claimIdle time.Duration, log zerolog.Logger) *RedisStreamQueue {
	return &RedisStreamQueue{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		block:     block,
		claimIdle: claimIdle,
		log:       log.With().Str("component", "redis-stream-queue").Str("stream", stream).Logger(),
	}
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}

func (q *RedisStreamQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", q.group, err)
	}
	return nil
}

// PublishBatch implements embedding.Publisher. Entries are added in one pipeline; an entry that
// could not be encoded or whose XADD failed is reported by id.
func (q *RedisStreamQueue) PublishBatch(ctx context.Context, messages []embedding.QueueMessage) ([]string, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	var failed []string
	encoded := make([]map[string]any, len(messages))
	for i, m := range messages {
		values, err := encodeEntry(m)
		if err != nil {
			q.log.Warn().Err(err).Str("entry_id", m.ID).Msg("cannot encode work unit")
			failed = append(failed, m.ID)
			continue
		}
		encoded[i] = values
	}

	cmds := make([]*redis.StringCmd, len(messages))
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, values := range encoded {
			if values != nil {
				cmds[i] = pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: values})
			}
		}
		return nil
	})
	if err != nil && len(failed) == 0 && allFailed(cmds) {
		return nil, fmt.Errorf("redis stream publish: %w", err)
	}

	for i, cmd := range cmds {
		if cmd != nil && cmd.Err() != nil {
			q.log.Warn().Err(cmd.Err()).Str("entry_id", messages[i].ID).Msg("redis stream rejected entry")
			failed = append(failed, messages[i].ID)
		}
	}
	return failed, nil
}

// Receive implements embedding.Consumer. Stale pending entries are reclaimed before new ones are read.
func (q *RedisStreamQueue) Receive(ctx context.Context, limit int) ([]embedding.Delivery, error) {
	limit = min(max(limit, 1), embedding.QueueBatchLimit)

	var msgs []redis.XMessage
	if q.claimIdle > 0 {
		claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.claimIdle,
			Start:    "0-0",
			Count:    int64(limit),
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis stream autoclaim: %w", err)
		}
		msgs = claimed
	}

	if len(msgs) == 0 {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    int64(limit),
			Block:    q.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, fmt.Errorf("redis stream read: %w", err)
		}
		for _, s := range streams {
			msgs = append(msgs, s.Messages...)
		}
	}

	deliveries := make([]embedding.Delivery, 0, len(msgs))
	var poison []embedding.Delivery
	for _, m := range msgs {
		unit, err := decodeEntry(m.Values)
		d := embedding.Delivery{Handle: m.ID, Unit: unit}
		if err != nil {
			q.log.Error().Err(err).Str("entry_id", m.ID).Msg("dropping undecodable work unit")
			poison = append(poison, d)
			continue
		}
		deliveries = append(deliveries, d)
	}
	if len(poison) > 0 {
		if err := q.Ack(ctx, poison); err != nil {
			q.log.Warn().Err(err).Msg("failed to ack undecodable work units")
		}
	}
	return deliveries, nil
}

// Ack implements embedding.Consumer.
func (q *RedisStreamQueue) Ack(ctx context.Context, deliveries []embedding.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	ids := make([]string, len(deliveries))
	for i, d := range deliveries {
		ids[i] = d.Handle
	}
	if err := q.client.XAck(ctx, q.stream, q.group, ids...).Err(); err != nil {
		return fmt.Errorf("redis stream ack: %w", err)
	}
	return nil
}

func (q *RedisStreamQueue) Close() error {
	return q.client.Close()
}

func encodeEntry(m embedding.QueueMessage) (map[string]any, error) {
	body, err := json.Marshal(m.Unit)
	if err != nil {
		return nil, fmt.Errorf("encode work unit %s: %w", m.Unit.MessageID, err)
	}
	values := make(map[string]any, len(m.Attributes)+1)
	values[fieldUnit] = string(body)
	for k, v := range m.Attributes {
		values[fieldAttrPrefix+k] = v
	}
	return values, nil
}

func decodeEntry(values map[string]any) (embedding.WorkUnit, error) {
	var unit embedding.WorkUnit
	raw, ok := values[fieldUnit].(string)
	if !ok {
		return unit, fmt.Errorf("entry has no %q field", fieldUnit)
	}
	if err := json.Unmarshal([]byte(raw), &unit); err != nil {
		return unit, fmt.Errorf("decode work unit: %w", err)
	}
	if unit.MessageID == "" {
		return unit, fmt.Errorf("work unit has no message id")
	}
	return unit, nil
}

func allFailed(cmds []*redis.StringCmd) bool {
	for _, c := range cmds {
		if c != nil && c.Err() == nil {
			return false
		}
	}
	return true
}
