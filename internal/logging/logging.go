// Package logging builds the slog loggers used by the command and keeps an
// in-memory ring of recent records for later inspection.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// ParseLevel parses debug, info, warn or error (case-insensitive). The empty
// string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// New returns a logger writing to w in the given format, "text" or "json".
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// Entry is a single record held by a RingHandler.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// RingHandler implements slog.Handler, retaining the most recent records up to
// a fixed capacity. Handlers derived with WithAttrs or WithGroup share the
// same ring.
type RingHandler struct {
	ring   *ring
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

type ring struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// NewRingHandler creates a handler keeping up to maxEntries records at or above
// level. A non-positive maxEntries defaults to 1000.
func NewRingHandler(maxEntries int, level slog.Leveler) *RingHandler {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &RingHandler{
		ring:  &ring{entries: make([]Entry, 0, maxEntries), max: maxEntries},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *RingHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	prefix := ""
	if len(h.groups) != 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[prefix+a.Key] = a.Value.String()
		return true
	})

	r := h.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if len(r.entries) > r.max {
		r.entries = r.entries[1:]
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	prefix := ""
	if len(h.groups) != 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	c.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(slices.Clone(h.groups), name)
	return &c
}

// Entries returns a copy of the retained records, oldest first.
func (h *RingHandler) Entries() []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	return slices.Clone(h.ring.entries)
}

// Recent returns up to count of the newest records.
func (h *RingHandler) Recent(count int) []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	n := len(h.ring.entries)
	if count <= 0 || count > n {
		count = n
	}
	return slices.Clone(h.ring.entries[n-count:])
}

// Search returns the retained records whose message contains query,
// case-insensitively.
func (h *RingHandler) Search(query string) []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	query = strings.ToLower(query)
	var out []Entry
	for _, e := range h.ring.entries {
		if strings.Contains(strings.ToLower(e.Message), query) {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops every retained record.
func (h *RingHandler) Clear() {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	h.ring.entries = h.ring.entries[:0]
}

// Tee returns a handler that sends every record to each of handlers.
func Tee(handlers ...slog.Handler) slog.Handler {
	return tee(handlers)
}

type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
