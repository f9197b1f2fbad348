package embedding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token counts are estimated at four characters per token. This is an approximation, not a
// tokenizer, and the truncation target and cost estimate both rely on it.
const (
	charsPerToken    = 4
	shortAnswerLimit = 5
)

var interrogatives = map[string]struct{}{
	"what": {}, "why": {}, "how": {}, "when": {}, "where": {}, "who": {}, "which": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "is": {}, "are": {},
	"do": {}, "does": {}, "did": {}, "will": {},
}

// EstimateTokens returns ceil(characters / 4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// TruncateToTokenLimit returns text unchanged when it fits maxTokens, otherwise its first
// floor(maxTokens * 4 * 0.9) characters. Applying it twice is the same as applying it once.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}
	// 90% of the estimated character budget
	limit := maxTokens * charsPerToken * 9 / 10
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// IsQuestion reports whether text contains '?' or opens with an interrogative word.
func IsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	// "how's" and "what’s" open a question as much as "how" and "what"
	word, _, _ := strings.Cut(strings.ReplaceAll(fields[0], "’", "'"), "'")
	first := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	_, ok := interrogatives[first]
	return ok
}

func IsShortAnswer(text string) bool {
	return EstimateTokens(text) <= shortAnswerLimit
}
