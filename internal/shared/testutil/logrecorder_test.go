package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingT struct {
	failures int
}

func (r *recordingT) Errorf(string, ...interface{}) {
	r.failures++
}

func TestLogRecorder(t *testing.T) {
	t.Run("captures records and attributes", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Info("snapshot loaded", slog.String("source", "file:respostas.csv"), slog.Int("rows", 4))
		logger.Error("snapshot load failed", slog.String("error", "timeout"))

		records := logs.Records()
		require.Len(t, records, 2)
		assert.Equal(t, int64(4), records[0].Attrs["rows"])

		logs.AssertLogged(t, slog.LevelInfo, "loaded")
		logs.AssertAttr(t, "source", "file:respostas.csv")
	})

	t.Run("derived loggers share the store", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.With(slog.String("component", "cache")).
			WithGroup("entry").
			Warn("refresh failed", slog.Bool("pinned", true))

		rec, ok := logs.Find(slog.LevelWarn, "refresh")
		require.True(t, ok)
		assert.Equal(t, "cache", rec.Attrs["component"])
		assert.Equal(t, true, rec.Attrs["entry.pinned"])
	})

	t.Run("filters by level and resets", func(t *testing.T) {
		logger, logs := NewTestLogger(nil)

		logger.Debug("debug")
		logger.Info("info")
		logger.Warn("warn")

		assert.Len(t, logs.Level(slog.LevelWarn), 1)
		assert.True(t, logs.AssertNoErrors(t))

		logs.Reset()
		assert.Empty(t, logs.Records())
	})

	t.Run("failed assertions report", func(t *testing.T) {
		_, logs := NewTestLogger(nil)
		mockT := &recordingT{}

		assert.False(t, logs.AssertLogged(mockT, slog.LevelInfo, "missing"))
		assert.False(t, logs.AssertAttr(mockT, "key", "value"))
		assert.Equal(t, 2, mockT.failures)
	})
}
