// Package logging sets up the two loggers of a run: a JSON tool log written
// to a file for machines, and a terse console log for the operator.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config selects where and how much to log.
type Config struct {
	Dir     string
	File    string
	Level   string
	Console bool
}

// Loggers holds the tool and console loggers.
type Loggers struct {
	Tool    *slog.Logger
	Console *slog.Logger
	file    *os.File
}

// Setup opens <Dir>/<File> for appending and builds both loggers. Console
// output goes to w unless cfg.Console is false.
func Setup(cfg Config, w io.Writer) (*Loggers, error) {
	if cfg.File == "" {
		cfg.File = "app_log.log"
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Join(cfg.Dir, cfg.File), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	if !cfg.Console || w == nil {
		w = io.Discard
	}
	return &Loggers{
		Tool:    slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})),
		Console: slog.New(NewConsoleHandler(w, slog.LevelInfo)),
		file:    f,
	}, nil
}

// Close flushes and closes the tool log file.
func (l *Loggers) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// ParseLevel maps debug, warn and error to their slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
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

// ConsoleHandler writes records as "| message key=value ..." lines.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewConsoleHandler creates a handler writing to w.
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	return &ConsoleHandler{mu: &sync.Mutex{}, w: w, level: level}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString("| ")
	if r.Level >= slog.LevelWarn {
		sb.WriteString(r.Level.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			writeAttr(sb, prefix, g)
		}
		return
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") || val == "" {
		val = fmt.Sprintf("%q", val)
	}
	fmt.Fprintf(sb, " %s%s=%s", prefix, a.Key, val)
}
