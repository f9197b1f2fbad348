// Package sanitize scrubs message content before it reaches logs.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

type Level string

const (
	// LevelNone drops content entirely.
	LevelNone Level = "none"
	// LevelHashed keeps the text but replaces recognisable PII with salted hashes.
	LevelHashed Level = "hashed"
	// LevelFull logs content unchanged. Development only.
	LevelFull Level = "full"
)

const redacted = "[REDACTED]"

type rule struct {
	pattern *regexp.Regexp
	label   string
	hashed  bool
}

// Order matters: card and SSN shapes would otherwise be eaten by the phone pattern.
var rules = []rule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "EMAIL", true},
	{regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`), "CC", false},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "SSN", false},
	{regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`), "PHONE", true},
	{regexp.MustCompile(`\b(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}\b`), "IP", true},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "IP", true},
}

type Sanitizer struct {
	level Level
	salt  string
}

// New returns a sanitizer. Unknown levels behave as LevelHashed.
func New(level Level, salt string) *Sanitizer {
	switch Level(strings.ToLower(string(level))) {
	case LevelNone:
		level = LevelNone
	case LevelFull:
		level = LevelFull
	default:
		level = LevelHashed
	}
	return &Sanitizer{level: level, salt: salt}
}

func (s *Sanitizer) Level() Level {
	return s.level
}

// Text sanitizes free-form user content such as a message body or search query.
func (s *Sanitizer) Text(input string) string {
	if input == "" {
		return ""
	}
	switch s.level {
	case LevelNone:
		return redacted
	case LevelFull:
		return input
	}

	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllStringFunc(out, func(match string) string {
			if !r.hashed {
				return "[" + r.label + ":REDACTED]"
			}
			return "[" + r.label + ":" + s.hash(match) + "]"
		})
	}
	return out
}

func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}
