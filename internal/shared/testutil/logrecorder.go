package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// LogRecord is one captured log line with its attributes flattened.
// Attributes added through With appear with their group prefix.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record in memory
type LogRecorder struct {
	store *recordStore
	attrs []slog.Attr
	group string
	tb    testing.TB
}

// NewLogRecorder returns an empty recorder. When tb is non-nil every record
// is also written to the test log.
func NewLogRecorder(tb testing.TB) *LogRecorder {
	return &LogRecorder{store: &recordStore{}, tb: tb}
}

// NewTestLogger returns a logger writing into a fresh recorder
func NewTestLogger(tb testing.TB) (*slog.Logger, *LogRecorder) {
	rec := NewLogRecorder(tb)
	return slog.New(rec), rec
}

func (h *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = a.Value.Resolve().Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.store.mu.Unlock()

	if h.tb != nil {
		h.tb.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	child.attrs = append(child.attrs, h.attrs...)
	for _, a := range attrs {
		child.attrs = append(child.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &child
}

func (h *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := *h
	child.group = h.key(name)
	return &child
}

func (h *LogRecorder) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// Records returns a copy of everything captured so far
func (h *LogRecorder) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// Level returns the records logged at exactly level
func (h *LogRecorder) Level(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the first record at level whose message contains msg
func (h *LogRecorder) Find(level slog.Level, msg string) (LogRecord, bool) {
	for _, r := range h.Level(level) {
		if strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// Reset drops the captured records
func (h *LogRecorder) Reset() {
	h.store.mu.Lock()
	h.store.records = nil
	h.store.mu.Unlock()
}

// AssertLogged fails the test unless a record at level contains msg
func (h *LogRecorder) AssertLogged(t assert.TestingT, level slog.Level, msg string) bool {
	if th, ok := t.(interface{ Helper() }); ok {
		th.Helper()
	}
	if _, ok := h.Find(level, msg); ok {
		return true
	}
	var got []string
	for _, r := range h.Level(level) {
		got = append(got, r.Message)
	}
	return assert.Fail(t, "log message not found",
		"level %s, message %q, captured %q", level, msg, got)
}

// AssertAttr fails the test unless some record carries key with value.
// Values are compared with assert.ObjectsAreEqual.
func (h *LogRecorder) AssertAttr(t assert.TestingT, key string, value any) bool {
	if th, ok := t.(interface{ Helper() }); ok {
		th.Helper()
	}
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && assert.ObjectsAreEqual(value, v) {
			return true
		}
	}
	return assert.Fail(t, "log attribute not found", "%s=%v", key, value)
}

// AssertNoErrors fails the test if anything was logged at error level
func (h *LogRecorder) AssertNoErrors(t assert.TestingT) bool {
	if th, ok := t.(interface{ Helper() }); ok {
		th.Helper()
	}
	errs := h.Level(slog.LevelError)
	return assert.Empty(t, errs, "unexpected error logs")
}
