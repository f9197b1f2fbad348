package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONStampsServiceFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	built, err := New(Options{Level: "DEBUG", Format: "json", Service: "jan-workspace", Environment: "test", Out: &buf})
	require.NoError(t, err)

	built.Debug().Str("message_id", "m1").Msg("dispatch")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "jan-workspace", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "m1", entry["message_id"])

	buf.Reset()
	log.Info().Msg("global")
	assert.Contains(t, buf.String(), `"service":"jan-workspace"`)
	assert.Contains(t, buf.String(), `"message":"global"`)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	built, err := New(Options{Level: "warn", Format: "json", Out: &buf})
	require.NoError(t, err)

	built.Info().Msg("dropped")
	assert.Empty(t, buf.String())
	built.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
