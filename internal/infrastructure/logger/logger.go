package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	mu      sync.RWMutex
	current = zerolog.New(consoleWriter(os.Stdout)).With().Timestamp().Logger()
)

// Options selects the level and encoding of the process logger. Service and Environment are
// stamped on every entry so worker and HTTP logs can be told apart downstream.
type Options struct {
	Level       string
	Format      string
	Service     string
	Environment string
	Out         io.Writer
}

// GetLogger returns the process logger. Before New runs it is an info-level console logger.
func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// New builds the process logger from opts and installs it, including as zerolog's global
// log.Logger used by the domain packages.
func New(opts Options) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		lvl = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
	case FormatConsole, "":
		out = consoleWriter(out)
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Environment != "" {
		ctx = ctx.Str("env", opts.Environment)
	}
	built := ctx.Logger()

	mu.Lock()
	current = built
	mu.Unlock()
	log.Logger = built

	return built, nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}
