package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsToHashed(t *testing.T) {
	assert.Equal(t, LevelHashed, New("", "salt").Level())
	assert.Equal(t, LevelHashed, New("bogus", "salt").Level())
	assert.Equal(t, LevelNone, New("NONE", "salt").Level())
	assert.Equal(t, LevelFull, New(LevelFull, "salt").Level())
}

func TestTextLevels(t *testing.T) {
	input := "ping ada@example.com about the deploy"

	assert.Equal(t, "[REDACTED]", New(LevelNone, "s").Text(input))
	assert.Equal(t, input, New(LevelFull, "s").Text(input))
	assert.Equal(t, "", New(LevelNone, "s").Text(""))
}

func TestTextHashed(t *testing.T) {
	s := New(LevelHashed, "workspace")

	tests := []struct {
		name     string
		input    string
		gone     string
		contains string
	}{
		{"email", "mail ada@example.com please", "ada@example.com", "[EMAIL:"},
		{"phone", "call 555-123-4567 now", "555-123-4567", "[PHONE:"},
		{"ssn", "ssn 123-45-6789", "123-45-6789", "[SSN:REDACTED]"},
		{"card", "card 4111 1111 1111 1111", "4111", "[CC:REDACTED]"},
		{"ipv4", "host 10.0.0.12 is down", "10.0.0.12", "[IP:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Text(tt.input)
			assert.NotContains(t, out, tt.gone)
			assert.Contains(t, out, tt.contains)
		})
	}

	assert.Equal(t, "nothing to hide here", s.Text("nothing to hide here"))
}

func TestHashIsSaltedAndStable(t *testing.T) {
	a := New(LevelHashed, "w1").Text("ada@example.com")
	b := New(LevelHashed, "w1").Text("ada@example.com")
	c := New(LevelHashed, "w2").Text("ada@example.com")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
