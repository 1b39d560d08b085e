package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ergopulse/internal/survey"
)

// FileSource reads a CSV or XLSX file, optionally compressed, from disk.
type FileSource struct {
	path     string
	maxBytes int64
	logger   *slog.Logger
}

// NewFileSource creates a FileSource
func NewFileSource(path string, maxBytes int64, logger *slog.Logger) *FileSource {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FileSource{
		path:     path,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "file_source")),
	}
}

// Name returns the base name of the file
func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.path)
}

// Fetch reads and decodes the file
func (s *FileSource) Fetch(ctx context.Context) (*survey.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(s.Name(), err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	if info.Size() > s.maxBytes {
		return nil, unavailable(s.Name(), fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, ErrTooLarge))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}

	table, err := Decode(s.Name(), data, s.maxBytes)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	s.logger.DebugContext(ctx, "file loaded", slog.String("path", s.path), slog.Int("rows", table.Len()))
	return table, nil
}
