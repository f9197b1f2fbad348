package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure/redisconn"
	"github.com/janhq/jan-workspace/internal/utils/sanitize"
)

// Envelope is the JSON frame every backend publishes.
type Envelope struct {
	Event   string    `json:"event"`
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

func encode(topic, event string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Event: event, Topic: topic, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	return data, nil
}

// New builds the broadcaster selected by REALTIME_BACKEND.
func New(cfg *configs.Config, log zerolog.Logger) (notification.Broadcaster, error) {
	switch cfg.RealtimeBackend {
	case configs.RealtimeBackendRedis:
		client, err := redisconn.NewClient(cfg.RealtimeRedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisBroadcaster(client), nil
	case configs.RealtimeBackendLiveKit:
		if cfg.LiveKitURL == "" {
			return nil, fmt.Errorf("LIVEKIT_URL is required for the livekit realtime backend")
		}
		client := lksdk.NewRoomServiceClient(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
		return NewLiveKitBroadcaster(client), nil
	case configs.RealtimeBackendLog:
		return NewLogBroadcaster(log, sanitize.New(sanitize.Level(cfg.LogContentLevel), cfg.ServiceName)), nil
	default:
		return nil, fmt.Errorf("unknown realtime backend %q", cfg.RealtimeBackend)
	}
}

// Close releases the broadcaster's connections when it holds any.
func Close(b notification.Broadcaster) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ===============================================
// Redis pub/sub
// ===============================================

type RedisBroadcaster struct {
	client redis.UniversalClient
}

func NewRedisBroadcaster(client redis.UniversalClient) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, topic, event string, payload any) error {
	data, err := encode(topic, event, payload)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, data).Err()
}

func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}

// ===============================================
// LiveKit room data
// ===============================================

type dataSender interface {
	SendData(ctx context.Context, req *livekit.SendDataRequest) (*livekit.SendDataResponse, error)
}

// LiveKitBroadcaster sends each event as a reliable data packet to the room named after the topic.
type LiveKitBroadcaster struct {
	client dataSender
}

func NewLiveKitBroadcaster(client dataSender) *LiveKitBroadcaster {
	return &LiveKitBroadcaster{client: client}
}

func (b *LiveKitBroadcaster) Broadcast(ctx context.Context, topic, event string, payload any) error {
	data, err := encode(topic, event, payload)
	if err != nil {
		return err
	}
	_, err = b.client.SendData(ctx, &livekit.SendDataRequest{
		Room:  topic,
		Data:  data,
		Kind:  livekit.DataPacket_RELIABLE,
		Topic: &event,
	})
	return err
}

// ===============================================
// Log only
// ===============================================

type LogBroadcaster struct {
	log       zerolog.Logger
	sanitizer *sanitize.Sanitizer
}

func NewLogBroadcaster(log zerolog.Logger, sanitizer *sanitize.Sanitizer) *LogBroadcaster {
	return &LogBroadcaster{log: log.With().Str("component", "realtime").Logger(), sanitizer: sanitizer}
}

// Broadcast logs the frame at debug level. Payloads carry message previews and are sanitized.
func (b *LogBroadcaster) Broadcast(_ context.Context, topic, event string, payload any) error {
	entry := b.log.Debug().Str("topic", topic).Str("event", event)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", event, err)
		}
		entry = entry.Str("payload", b.sanitizer.Text(string(data)))
	}
	entry.Msg("broadcast")
	return nil
}
