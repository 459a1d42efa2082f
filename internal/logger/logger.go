// Package logger owns the process-wide slog logger and the request-scoped
// loggers that transports attach to a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oggyb/muzz-match/internal/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool
}

var (
	global atomic.Pointer[slog.Logger]

	mu     sync.Mutex
	cfg    = Config{Level: "info", Format: FormatText}
	output io.Writer = os.Stdout
)

// InitFromConfig initializes global logger from app config.
// A nil config rebuilds the logger from the last one applied.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	Init(&Config{
		Level:      c.Log.Level,
		Format:     Format(c.Log.Format),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
	})
}

// Init replaces the global logger. Safe to call multiple times.
func Init(c *Config) {
	mu.Lock()
	defer mu.Unlock()
	if c != nil {
		cfg = *c
	}
	global.Store(New(cfg, output))
}

// SetOutput redirects the global logger and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	prev := output
	output = w
	mu.Unlock()
	Init(nil)
	return prev
}

// New builds a standalone logger writing to w.
func New(c Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Level),
		AddSource: c.WithSource,
	}

	var handler slog.Handler
	if strings.EqualFold(string(c.Format), string(FormatJSON)) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// shorter timestamps for humans reading a terminal
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.DateTime))
			}
			return a
		}
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	if c.Component != "" {
		l = l.With("component", c.Component)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// L returns the global logger, building a default one on first use.
func L() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	Init(nil)
	return global.Load()
}

type ctxKey struct{}

// IntoContext attaches a request-scoped logger to ctx.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached by IntoContext.
func FromContext(ctx context.Context) (*slog.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	return l, ok && l != nil
}

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
