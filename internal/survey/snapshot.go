package survey

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Snapshot is the immutable result of loading one raw table. It is shared by
// every render cycle until the cache replaces it.
type Snapshot struct {
	Source     string
	LoadedAt   time.Time
	Schema     SchemaMap
	Records    []*NormalizedRecord
	SectorRows []ExplodedRecord
	Rows       int
	Dropped    int
	options    Options
	painValues []ValueCount
}

// Options lists the selector values offered to the UI.
type Options struct {
	Months   []string `json:"months"`
	Sectors  []string `json:"sectors"`
	Leaders  []string `json:"leaders"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValueCount is a distinct raw value and how often it occurred
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Diagnostics describes how a snapshot was interpreted.
type Diagnostics struct {
	Source           string            `json:"source"`
	LoadedAt         time.Time         `json:"loaded_at"`
	Schema           map[string]Column `json:"schema"`
	Warnings         []string          `json:"warnings,omitempty"`
	Rows             int               `json:"rows"`
	Kept             int               `json:"kept"`
	Dropped          int               `json:"dropped"`
	AffirmativeTotal int               `json:"affirmative_total"`
	PainValues       []ValueCount      `json:"pain_values"`
	Sectors          []string          `json:"sectors"`
}

// Options returns the selector lists of the snapshot
func (s *Snapshot) Options() Options {
	return s.options
}

// Diagnostics returns the debug view of the snapshot
func (s *Snapshot) Diagnostics() Diagnostics {
	affirmative := 0
	for _, rec := range s.Records {
		if rec.Affirmative {
			affirmative++
		}
	}
	return Diagnostics{
		Source:           s.Source,
		LoadedAt:         s.LoadedAt,
		Schema:           s.Schema.Describe(),
		Warnings:         s.Schema.Warnings,
		Rows:             s.Rows,
		Kept:             len(s.Records),
		Dropped:          s.Dropped,
		AffirmativeTotal: affirmative,
		PainValues:       s.painValues,
		Sectors:          s.options.Sectors,
	}
}

func buildOptions(records []*NormalizedRecord, sectorRows []ExplodedRecord, schema SchemaMap) Options {
	months := make(map[string]struct{})
	leaders := make(map[string]struct{})
	sectors := make(map[string]struct{})
	for _, rec := range records {
		months[rec.Month] = struct{}{}
		if rec.Leader != "" {
			leaders[rec.Leader] = struct{}{}
		}
	}
	for _, row := range sectorRows {
		sectors[row.Token] = struct{}{}
	}

	opts := Options{
		Months:   keys(months),
		Sectors:  keys(sectors),
		Leaders:  keys(leaders),
		Warnings: schema.Warnings,
	}
	SortBucketsDesc(opts.Months)
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	col.SortStrings(opts.Sectors)
	col.SortStrings(opts.Leaders)
	return opts
}

func countPainValues(records []*NormalizedRecord) []ValueCount {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.PainFlag]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
