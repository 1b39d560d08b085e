package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"ergopulse/internal/survey"
	"ergopulse/pkg/contracts"
)

// DefaultMaxBytes caps a fetched or uploaded table
const DefaultMaxBytes = 32 << 20

// HTTPSource downloads a published spreadsheet in CSV form.
type HTTPSource struct {
	url      string
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPSource creates an HTTPSource. A nil client gets a 30s default.
func NewHTTPSource(rawURL string, client *http.Client, maxBytes int64, logger *slog.Logger) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPSource{
		url:      rawURL,
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "http_source")),
	}
}

// Name returns the host of the URL, never its query string
func (s *HTTPSource) Name() string {
	if u, err := url.Parse(s.url); err == nil && u.Host != "" {
		return "csv_url:" + u.Host
	}
	return "csv_url"
}

// Fetch downloads and decodes the table
func (s *HTTPSource) Fetch(ctx context.Context) (*survey.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	req.Header.Set("Accept", "text/csv, application/octet-stream")
	req.Header.Set("User-Agent", contracts.UserAgent())

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(s.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, unavailable(s.Name(), fmt.Errorf("failed to read body: %w", err))
	}
	if int64(len(data)) > s.maxBytes {
		return nil, unavailable(s.Name(), fmt.Errorf("body exceeds %d bytes: %w", s.maxBytes, ErrTooLarge))
	}

	table, err := Decode(s.Name(), data, s.maxBytes)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}

	s.logger.InfoContext(ctx, "table fetched",
		slog.Int("bytes", len(data)),
		slog.Int("rows", table.Len()),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}
