// Package survey implements the discomfort survey pipeline: column role
// resolution, value normalization, multi-value explosion, month bucketing,
// filtering and pain region aggregation.
//
// A raw table is turned into an immutable Snapshot once per load:
//
//	p := survey.NewPipeline(survey.DefaultConfig(), logger)
//	snap, err := p.BuildSnapshot(table)
//	report := p.Run(snap, survey.FilterCriteria{Month: "2025-03"})
//
// Every stage allocates new collections; a Snapshot may be shared by any
// number of goroutines.
package survey
