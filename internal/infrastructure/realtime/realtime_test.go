package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/livekit/protocol/livekit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/utils/sanitize"
)

type fakeRoomService struct {
	requests []*livekit.SendDataRequest
	err      error
}

func (f *fakeRoomService) SendData(_ context.Context, req *livekit.SendDataRequest) (*livekit.SendDataResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &livekit.SendDataResponse{}, nil
}

func TestLiveKitBroadcaster(t *testing.T) {
	fake := &fakeRoomService{}
	b := NewLiveKitBroadcaster(fake)

	err := b.Broadcast(context.Background(), "member:u1", "notification_created", map[string]string{"id": "n1"})
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)

	req := fake.requests[0]
	assert.Equal(t, "member:u1", req.Room)
	assert.Equal(t, livekit.DataPacket_RELIABLE, req.Kind)
	assert.Equal(t, "notification_created", req.GetTopic())

	var env struct {
		Event   string            `json:"event"`
		Topic   string            `json:"topic"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(req.Data, &env))
	assert.Equal(t, "notification_created", env.Event)
	assert.Equal(t, "member:u1", env.Topic)
	assert.Equal(t, "n1", env.Payload["id"])

	fake.err = errors.New("room not found")
	assert.Error(t, b.Broadcast(context.Background(), "member:u2", "notification_created", nil))
}

func TestEncodeRejectsUnserializablePayload(t *testing.T) {
	_, err := encode("t", "e", make(chan int))
	assert.Error(t, err)
}

func TestLogBroadcaster(t *testing.T) {
	var buf bytes.Buffer
	b := NewLogBroadcaster(zerolog.New(&buf).Level(zerolog.DebugLevel), sanitize.New(sanitize.LevelHashed, "test"))
	require.NoError(t, b.Broadcast(context.Background(), "channel:c1", "message_created", nil))
	assert.Contains(t, buf.String(), `"topic":"channel:c1"`)

	buf.Reset()
	payload := map[string]string{"preview": "reach me at ada@example.com"}
	require.NoError(t, b.Broadcast(context.Background(), "member:u1", "notification_created", payload))
	assert.Contains(t, buf.String(), "reach me at")
	assert.NotContains(t, buf.String(), "ada@example.com")
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(&configs.Config{RealtimeBackend: "carrier-pigeon"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(&configs.Config{RealtimeBackend: configs.RealtimeBackendLiveKit}, zerolog.Nop())
	assert.Error(t, err)

	b, err := New(&configs.Config{RealtimeBackend: configs.RealtimeBackendLog}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogBroadcaster{}, b)
	assert.NoError(t, Close(b))
}
