package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"ergopulse/internal/cache"
	"ergopulse/internal/infrastructure"
	"ergopulse/pkg/contracts"
)

// Health states reported by HealthService
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// SnapshotStatus reports the cache without triggering a load
type SnapshotStatus interface {
	Status() (entry *cache.Entry, stats cache.Stats, configured bool)
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	GetClientCount() int
}

// HealthService answers the health, readiness, liveness and version probes
type HealthService struct {
	version   string
	buildTime string
	snapshots SnapshotStatus
	clients   ClientCounter
	startTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// HealthStatus is the body of every health probe
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// Ready reports whether every dependency is ready
func (s HealthStatus) Ready() bool {
	return s.Status == StatusReady
}

// ServiceHealth is the state of one dependency
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// VersionInfo is the body of GET /api/version
type VersionInfo struct {
	Version       string    `json:"version"`
	BuildTime     string    `json:"build_time,omitempty"`
	GitCommit     string    `json:"git_commit"`
	GoVersion     string    `json:"go_version"`
	OS            string    `json:"os"`
	Arch          string    `json:"arch"`
	UptimeSeconds float64   `json:"uptime"`
	StartTime     time.Time `json:"start_time"`
}

// NewHealthService creates a new health service. snapshots and clients may
// be nil.
func NewHealthService(version, buildTime string, snapshots SnapshotStatus, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		snapshots: snapshots,
		clients:   clients,
		startTime: time.Now(),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.Duration("uptime", time.Since(hs.startTime)))
	return hs.status(StatusOK)
}

// ReadinessCheck is not_ready when any dependency is
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := hs.status(StatusReady)
	status.Services = map[string]ServiceHealth{
		"survey":    hs.checkSurveyHealth(),
		"websocket": hs.checkWebSocketHealth(),
	}
	for name, sh := range status.Services {
		if sh.Status != StatusReady {
			hs.logger.DebugContext(ctx, "dependency not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
			status.Status = StatusNotReady
		}
	}
	return status
}

// LivenessCheck returns liveness status with runtime statistics
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	status := hs.status(StatusAlive)
	status.Runtime = infrastructure.CollectRuntimeStats(hs.startTime).FormatStats()
	return status
}

// Version describes the running build
func (hs *HealthService) Version() VersionInfo {
	return VersionInfo{
		Version:       hs.version,
		BuildTime:     hs.buildTime,
		GitCommit:     contracts.GitCommit,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		UptimeSeconds: hs.now().Sub(hs.startTime).Seconds(),
		StartTime:     hs.startTime,
	}
}

func (hs *HealthService) status(state string) HealthStatus {
	return HealthStatus{
		Status:    state,
		Timestamp: hs.now(),
		Version:   hs.version,
	}
}

// checkSurveyHealth is not_ready only when a configured source has failed
// and nothing has ever been loaded. An expired snapshot is still served.
func (hs *HealthService) checkSurveyHealth() ServiceHealth {
	if hs.snapshots == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dashboard service not initialized"}
	}

	entry, stats, configured := hs.snapshots.Status()
	switch {
	case entry != nil && entry.Snapshot != nil:
		msg := fmt.Sprintf("snapshot from %s with %d rows", entry.Snapshot.Source, len(entry.Snapshot.Records))
		if entry.TTL <= 0 {
			msg += " (pinned)"
		} else if expires := entry.ExpiresAt(); hs.now().After(expires) {
			msg += fmt.Sprintf(" (stale since %s)", expires.Format(time.RFC3339))
		}
		return ServiceHealth{
			Status:  StatusReady,
			Message: msg,
			Uptime:  hs.now().Sub(entry.FetchedAt).Round(time.Second).String(),
		}
	case configured && stats.Failures > 0:
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("source unreachable after %d attempts", stats.Failures)}
	case configured:
		return ServiceHealth{Status: StatusReady, Message: "snapshot loads on first request"}
	default:
		return ServiceHealth{Status: StatusReady, Message: "awaiting upload"}
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: StatusReady, Message: "websocket disabled"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d clients connected", hs.clients.GetClientCount()),
		Uptime:  hs.now().Sub(hs.startTime).Round(time.Second).String(),
	}
}
