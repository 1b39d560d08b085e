package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"ergopulse/internal/config"
)

func decodeLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestInitializeLogger_WritesJSONToFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "ergopulse.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("snapshot loaded", slog.Int("rows", 42))
	logger.Debug("dropped by level")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entries := decodeLines(t, content)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot loaded", entries[0]["msg"])
	assert.Equal(t, float64(42), entries[0]["rows"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "stdout"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "stdout"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestInitializeLogger_TextFormat(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "ergopulse.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "debug",
		Format:   "text",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)

	logger.Debug("cache miss", slog.String("source", "file:respostas.csv"))
	require.NoError(t, CloseLogFile())
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "level=DEBUG")
	assert.Contains(t, string(content), `msg="cache miss" source=file:respostas.csv`)
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "warn")

	logger.Info("hidden")
	logger.WarnContext(WithTraceID(context.Background(), "req-1"), "schema warning", slog.String("column", "Setor"))

	assert.Equal(t, "level=WARN msg=\"schema warning\" column=Setor trace_id=req-1\n", buf.String())
}

func TestTraceHandler_InjectsTraceID(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		want string
	}{
		{
			name: "context key",
			ctx:  func() context.Context { return WithTraceID(context.Background(), "req-123") },
			want: "req-123",
		},
		{
			name: "span context wins",
			ctx: func() context.Context {
				tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
				sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
				sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
				ctx := WithTraceID(context.Background(), "req-123")
				return trace.ContextWithSpanContext(ctx, sc)
			},
			want: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
		{
			name: "none",
			ctx:  context.Background,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, "info").With(slog.String("component", "test"))
			logger.InfoContext(tt.ctx(), "hello")

			entries := decodeLines(t, buf.Bytes())
			require.Len(t, entries, 1)
			assert.Equal(t, "test", entries[0]["component"])
			if tt.want == "" {
				assert.NotContains(t, entries[0], "trace_id")
				return
			}
			assert.Equal(t, tt.want, entries[0]["trace_id"])
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")
	assert.Same(t, logger, WithError(logger, nil))

	WithError(WithComponent(logger, "cache"), errors.New("boom")).Info("refresh failed")
	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, "cache", entries[0]["component"])
}
