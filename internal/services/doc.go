// Package services implements the dashboard's business layer between the HTTP
// handlers and the survey pipeline.
//
// DashboardService owns the snapshot cache. Every read goes through it:
//
//	report, err := dashboard.Frequency(ctx, survey.FilterCriteria{
//	    Month:  "2025-03",
//	    Sector: "Laminação",
//	})
//
// A snapshot is fetched from the configured source on first use and again
// once its TTL has passed. Refresh forces a fetch; Upload replaces the
// snapshot with a user-supplied table that never expires. Both broadcast a
// snapshot.refreshed event to connected WebSocket clients.
//
// Services return the sentinel errors in errors.go, wrapped with context, or
// the typed errors of the survey package. Handlers translate both into
// RFC 7807 responses.
package services
