package survey

import (
	"sort"
)

// Aggregator counts pain regions over affirmative responses.
type Aggregator struct {
	exploder *Exploder
}

// NewAggregator creates an Aggregator that explodes pain locations with exploder
func NewAggregator(exploder *Exploder) *Aggregator {
	return &Aggregator{exploder: exploder}
}

// Aggregate keeps affirmative records, explodes their pain locations and counts
// each region. ok is false when no record is affirmative; a result with
// affirmative records but no region tokens is returned with ok true.
func (a *Aggregator) Aggregate(records []*NormalizedRecord) (FrequencyResult, bool) {
	affirmative := make([]*NormalizedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Affirmative {
			affirmative = append(affirmative, rec)
		}
	}
	if len(affirmative) == 0 {
		return FrequencyResult{}, false
	}

	rows := a.exploder.Explode(affirmative, RolePainLocation)
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Token]++
	}

	entries := make([]RegionCount, 0, len(counts))
	for region, n := range counts {
		entries = append(entries, RegionCount{Region: region, Count: n})
	}
	SortFrequency(entries)

	return FrequencyResult{
		Entries:     entries,
		Affirmative: len(affirmative),
		Tokens:      len(rows),
	}, true
}

// SortFrequency orders entries by count descending, then region ascending
func SortFrequency(entries []RegionCount) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Region < entries[j].Region
	})
}
