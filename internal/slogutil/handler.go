// Package slogutil provides the slog handlers and logger construction used by umlreg.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LineHandler writes one line per record:
//
//	2026-01-02T15:04:05Z [warn] Model failed to load | model=broken error="no such file"
//
// Values containing spaces, quotes or '=' are quoted.
type LineHandler struct {
	w      io.Writer
	level  slog.Leveler
	color  bool
	prefix string // open groups, each followed by '.'
	attrs  string // preformatted WithAttrs output
	mu     *sync.Mutex
}

// NewLineHandler creates a line handler without color.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{w: w, level: level, mu: &sync.Mutex{}}
}

// WithColor returns a copy that colors the level tag. color.NoColor still
// wins, so redirected output stays plain.
func (h *LineHandler) WithColor() *LineHandler {
	c := *h
	c.color = !color.NoColor
	return &c
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteString(" [")
	tag := levelString(r.Level)
	if h.color {
		tag = levelColor(r.Level).Sprint(tag)
	}
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(r.Message)

	rest := h.attrs
	if r.NumAttrs() > 0 {
		var rb strings.Builder
		r.Attrs(func(a slog.Attr) bool {
			appendAttr(&rb, h.prefix, a)
			return true
		})
		rest += rb.String()
	}
	if rest != "" {
		b.WriteString(" |")
		b.WriteString(rest)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	c := *h
	c.attrs = b.String()
	return &c
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// appendAttr writes " key=value", flattening groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, inner, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level < slog.LevelInfo:
		return color.New(color.Faint)
	case level < slog.LevelWarn:
		return color.New(color.FgCyan)
	case level < slog.LevelError:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
