package embedding

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	// counted per character, not per byte
	assert.Equal(t, 1, EstimateTokens("日本語"))
}

func TestTruncateToTokenLimit(t *testing.T) {
	short := "fits easily"
	assert.Equal(t, short, TruncateToTokenLimit(short, 8191))

	long := strings.Repeat("x", 1000)
	got := TruncateToTokenLimit(long, 100)
	assert.Len(t, got, 360)

	assert.Equal(t, got, TruncateToTokenLimit(got, 100), "truncation must be idempotent")

	for _, maxTokens := range []int{1, 3, 7, 50, 8191} {
		text := strings.Repeat("y", maxTokens*4+9)
		once := TruncateToTokenLimit(text, maxTokens)
		assert.Equal(t, once, TruncateToTokenLimit(once, maxTokens))
		assert.LessOrEqual(t, EstimateTokens(once), maxTokens)
	}
}

func TestIsQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Can you review this?", true},
		{"deploy done?", true},
		{"How do we ship", true},
		{"WHEN is the release", true},
		{"why, though", true},
		{"How's it going", true},
		{"what’s the plan", true},
		{"Who'd own this", true},
		{"it's shipped", false},
		{"Shipping today", false},
		{"whatever works", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsQuestion(tt.text), tt.text)
	}
}

func TestIsShortAnswer(t *testing.T) {
	assert.True(t, IsShortAnswer("yes"))
	assert.True(t, IsShortAnswer(strings.Repeat("a", 20)))
	assert.False(t, IsShortAnswer(strings.Repeat("a", 21)))
}

func TestEstimateCost(t *testing.T) {
	cost := EstimateCost(500_000, 0.02)
	assert.True(t, decimal.RequireFromString("0.01").Equal(cost), cost.String())
	assert.True(t, EstimateCost(0, 0.02).IsZero())
}
