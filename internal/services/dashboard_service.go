package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ergopulse/internal/cache"
	"ergopulse/internal/infrastructure"
	"ergopulse/internal/source"
	"ergopulse/internal/survey"
)

// EventSnapshotRefreshed is broadcast after a new snapshot is installed
const EventSnapshotRefreshed = "snapshot.refreshed"

// WebSocketHub receives dashboard events
type WebSocketHub interface {
	Broadcast(messageType string, data interface{})
}

// SnapshotEvent describes a newly installed snapshot
type SnapshotEvent struct {
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Rows     int       `json:"rows"`
	Kept     int       `json:"kept"`
	Dropped  int       `json:"dropped"`
	Pinned   bool      `json:"pinned"`
}

// DiagnosticsView is the debug panel: snapshot diagnostics plus cache state
type DiagnosticsView struct {
	survey.Diagnostics
	Cache cache.Stats `json:"cache"`
}

// DashboardConfig holds the DashboardService dependencies. Source may be nil,
// in which case only uploaded tables are served.
type DashboardConfig struct {
	Pipeline       *survey.Pipeline
	Source         source.Source
	CacheTTL       time.Duration
	FetchTimeout   time.Duration
	MaxUploadBytes int64
	Metrics        *infrastructure.BusinessMetrics
	Hub            WebSocketHub
	Clock          func() time.Time
}

// DashboardService serves options, frequency reports and diagnostics from the
// cached survey snapshot.
type DashboardService struct {
	pipeline       *survey.Pipeline
	source         source.Source
	cache          *cache.SnapshotCache
	fetchTimeout   time.Duration
	maxUploadBytes int64
	metrics        *infrastructure.BusinessMetrics
	hub            WebSocketHub
	tracer         trace.Tracer
	logger         *slog.Logger
}

// NewDashboardService creates a DashboardService
func NewDashboardService(cfg DashboardConfig, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = survey.NewPipeline(survey.DefaultConfig(), logger)
	}

	s := &DashboardService{
		pipeline:       cfg.Pipeline,
		source:         cfg.Source,
		fetchTimeout:   cfg.FetchTimeout,
		maxUploadBytes: cfg.MaxUploadBytes,
		metrics:        cfg.Metrics,
		hub:            cfg.Hub,
		tracer:         otel.Tracer(infrastructure.MeterName),
		logger:         infrastructure.WithComponent(logger, "dashboard_service"),
	}

	var loader cache.Loader
	if cfg.Source != nil {
		loader = s.load
	}
	var opts []cache.Option
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock(cfg.Clock))
	}
	s.cache = cache.New(loader, cfg.CacheTTL, opts...)

	sourceName := "none"
	if cfg.Source != nil {
		sourceName = cfg.Source.Name()
	}
	s.logger.Info("DashboardService initialized",
		slog.String("source", sourceName),
		slog.Duration("cache_ttl", cfg.CacheTTL),
		slog.Duration("fetch_timeout", cfg.FetchTimeout))

	return s
}

// load fetches the source table and builds a snapshot. It runs inside the
// cache's single-flight group.
func (s *DashboardService) load(ctx context.Context) (*survey.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.load_snapshot",
		trace.WithAttributes(attribute.String("survey.source", s.source.Name())))
	defer span.End()

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := s.fetchAndBuild(ctx)
	duration := time.Since(start)

	kind := sourceKind(s.source.Name())
	if err != nil {
		infrastructure.RecordSnapshotLoad(ctx, s.metrics, kind, 0, 0, duration, err)
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordSystemError(ctx, s.metrics, "snapshot_load", "dashboard_service")
		infrastructure.WithError(s.logger, err).ErrorContext(ctx, "snapshot load failed",
			slog.String("source", s.source.Name()),
			slog.Duration("duration", duration))
		return nil, err
	}

	infrastructure.RecordSnapshotLoad(ctx, s.metrics, kind, len(snap.Records), snap.Dropped, duration, nil)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"survey.rows":    snap.Rows,
		"survey.kept":    len(snap.Records),
		"survey.dropped": snap.Dropped,
	})
	s.logger.InfoContext(ctx, "snapshot loaded",
		slog.String("source", snap.Source),
		slog.Int("rows", snap.Rows),
		slog.Int("dropped", snap.Dropped),
		slog.Duration("duration", duration))

	s.notify(snap, false)
	return snap, nil
}

func (s *DashboardService) fetchAndBuild(ctx context.Context) (*survey.Snapshot, error) {
	table, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.pipeline.BuildSnapshot(table)
}

// Snapshot returns the current snapshot, loading it when missing or expired
func (s *DashboardService) Snapshot(ctx context.Context) (*survey.Snapshot, error) {
	entry, hit, err := s.cache.Get(ctx)
	infrastructure.RecordCacheLookup(ctx, s.metrics, hit)
	if err != nil {
		if errors.Is(err, cache.ErrEmpty) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return entry.Snapshot, nil
}

// Options lists the months, sectors and leaders available for filtering
func (s *DashboardService) Options(ctx context.Context) (survey.Options, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return survey.Options{}, err
	}
	return snap.Options(), nil
}

// Frequency filters the snapshot and counts pain regions. An empty result is
// a report state, not an error.
func (s *DashboardService) Frequency(ctx context.Context, criteria survey.FilterCriteria) (survey.Report, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return survey.Report{}, err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.frequency",
		trace.WithAttributes(
			attribute.String("survey.month", criteria.Month),
			attribute.String("survey.sector", criteria.Sector),
			attribute.Int("survey.leaders", len(criteria.Leaders)),
		))
	defer span.End()

	start := time.Now()
	report := s.pipeline.Run(snap, criteria)
	infrastructure.RecordPipelineRun(ctx, s.metrics, string(report.State), time.Since(start))

	span.SetAttributes(
		attribute.String("survey.state", string(report.State)),
		attribute.Int("survey.filtered", report.Summary.Filtered),
	)
	s.logger.DebugContext(ctx, "frequency computed",
		slog.String("month", criteria.Month),
		slog.String("sector", criteria.Sector),
		slog.String("state", string(report.State)),
		slog.Int("filtered", report.Summary.Filtered),
		slog.Int("regions", len(report.Frequency.Entries)))

	return report, nil
}

// Diagnostics describes the loaded snapshot and the cache
func (s *DashboardService) Diagnostics(ctx context.Context) (DiagnosticsView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return DiagnosticsView{}, err
	}
	return DiagnosticsView{
		Diagnostics: snap.Diagnostics(),
		Cache:       s.cache.Stats(),
	}, nil
}

// Refresh refetches the source regardless of the cached entry. On failure the
// previous snapshot keeps being served.
func (s *DashboardService) Refresh(ctx context.Context) (*cache.Entry, error) {
	if s.source == nil {
		return nil, ErrSourceNotConfigured
	}
	s.logger.InfoContext(ctx, "refresh requested", slog.String("source", s.source.Name()))
	entry, err := s.cache.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh snapshot: %w", err)
	}
	return entry, nil
}

// Upload decodes a CSV or XLSX payload, optionally compressed, and pins the
// resulting snapshot until the next refresh or upload.
func (s *DashboardService) Upload(ctx context.Context, name string, data []byte) (*cache.Entry, error) {
	format := uploadFormat(name)
	entry, err := s.upload(ctx, name, data)
	infrastructure.RecordUpload(ctx, s.metrics, format, err)
	if err != nil {
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file", name),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()))
		return nil, err
	}
	infrastructure.AddSpanEvent(ctx, "survey.upload_installed", map[string]interface{}{
		"survey.file": name,
		"survey.rows": entry.Snapshot.Rows,
	})
	s.logger.InfoContext(ctx, "upload installed",
		slog.String("file", name),
		slog.Int("rows", entry.Snapshot.Rows),
		slog.Int("dropped", entry.Snapshot.Dropped))
	return entry, nil
}

func (s *DashboardService) upload(ctx context.Context, name string, data []byte) (*cache.Entry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, len(data), s.maxUploadBytes)
	}

	table, err := source.Decode("upload:"+filepath.Base(name), data, s.maxUploadBytes)
	if err != nil {
		if errors.Is(err, source.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrUploadTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	snap, err := s.pipeline.BuildSnapshot(table)
	if err != nil {
		return nil, err
	}

	entry := s.cache.Store(snap, 0)
	s.notify(snap, true)
	return entry, nil
}

func (s *DashboardService) notify(snap *survey.Snapshot, pinned bool) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(EventSnapshotRefreshed, SnapshotEvent{
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Rows:     snap.Rows,
		Kept:     len(snap.Records),
		Dropped:  snap.Dropped,
		Pinned:   pinned,
	})
}

// Status reports the cached entry without loading, for readiness checks
func (s *DashboardService) Status() (entry *cache.Entry, stats cache.Stats, configured bool) {
	return s.cache.Peek(), s.cache.Stats(), s.source != nil
}

// sourceKind keeps metric cardinality low: "csv_url:host" becomes "csv_url"
func sourceKind(name string) string {
	kind, _, _ := strings.Cut(name, ":")
	return kind
}

func uploadFormat(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "gz", "xz", "bz2":
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name)))), ".")
	}
	if ext == "" {
		return "unknown"
	}
	return ext
}
