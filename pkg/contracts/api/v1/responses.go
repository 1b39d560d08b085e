package api

import (
	"math"
	"time"

	"ergopulse/internal/survey"
)

// RegionShare is one row of the frequency table with its share of the total
type RegionShare struct {
	Region  string  `json:"region"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FrequencyResponse is the body of GET /api/survey/frequency
type FrequencyResponse struct {
	State       survey.ReportState    `json:"state"`
	EmptyReason string                `json:"empty_reason,omitempty"`
	Criteria    survey.FilterCriteria `json:"criteria"`
	Summary     survey.Summary        `json:"summary"`
	Entries     []RegionShare         `json:"entries"`
	Total       int                   `json:"total"`
	Advisory    *survey.Advisory      `json:"advisory,omitempty"`
}

// NewFrequencyResponse converts a Report, computing percentages rounded to
// one decimal place.
func NewFrequencyResponse(report survey.Report) FrequencyResponse {
	total := report.Frequency.Total()
	entries := make([]RegionShare, 0, len(report.Frequency.Entries))
	for _, e := range report.Frequency.Entries {
		entries = append(entries, RegionShare{
			Region:  e.Region,
			Count:   e.Count,
			Percent: Percent(e.Count, total),
		})
	}
	return FrequencyResponse{
		State:       report.State,
		EmptyReason: report.EmptyReason,
		Criteria:    report.Criteria,
		Summary:     report.Summary,
		Entries:     entries,
		Total:       total,
		Advisory:    report.Advisory,
	}
}

// Percent returns part/total as a percentage with one decimal place
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// SnapshotResponse is returned by refresh and upload
type SnapshotResponse struct {
	Source    string     `json:"source"`
	LoadedAt  time.Time  `json:"loaded_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Pinned    bool       `json:"pinned"`
	Rows      int        `json:"rows"`
	Kept      int        `json:"kept"`
	Dropped   int        `json:"dropped"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// NewSnapshotResponse summarizes a snapshot. A zero expiresAt marks a pinned
// upload.
func NewSnapshotResponse(snap *survey.Snapshot, expiresAt time.Time) SnapshotResponse {
	resp := SnapshotResponse{
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Pinned:   expiresAt.IsZero(),
		Rows:     snap.Rows,
		Kept:     len(snap.Records),
		Dropped:  snap.Dropped,
		Warnings: snap.Schema.Warnings,
	}
	if !expiresAt.IsZero() {
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
