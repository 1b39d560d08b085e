package survey

import (
	"fmt"
	"time"
)

// Role is the semantic meaning a raw column carries.
type Role int

const (
	RoleTimestamp Role = iota
	RoleSector
	RoleLeader
	RolePainFlag
	RolePainLocation
)

// String returns the role name used in errors and logs
func (r Role) String() string {
	switch r {
	case RoleTimestamp:
		return "timestamp"
	case RoleSector:
		return "sector"
	case RoleLeader:
		return "leader"
	case RolePainFlag:
		return "pain_flag"
	case RolePainLocation:
		return "pain_location"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// RawTable is a tabular dataset as fetched from the source: one header row
// followed by data rows. Rows may be shorter than the header.
type RawTable struct {
	Headers []string
	Rows    [][]string
	Source  string
}

// Len returns the number of data rows
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Record returns the i-th data row as a RawRecord
func (t *RawTable) Record(i int) RawRecord {
	return RawRecord{Index: i, cells: t.Rows[i]}
}

// RawRecord is one survey response addressed by column position.
type RawRecord struct {
	Index int
	cells []string
}

// Value returns the cell at col, or "" when the row is short.
func (r RawRecord) Value(col Column) string {
	if col.Index < 0 || col.Index >= len(r.cells) {
		return ""
	}
	return r.cells[col.Index]
}

// NormalizedRecord is a response whose timestamp parsed and whose categorical
// fields were canonicalized. Empty strings mean the null sentinel.
type NormalizedRecord struct {
	Row          int       `json:"row"`
	Timestamp    time.Time `json:"timestamp"`
	Month        string    `json:"month"`
	Sector       string    `json:"sector,omitempty"`
	Leader       string    `json:"leader,omitempty"`
	PainFlag     string    `json:"pain_flag,omitempty"`
	PainLocation string    `json:"pain_location,omitempty"`
	Affirmative  bool      `json:"affirmative"`
}

// Field returns the canonical cell of a multi-valued role
func (r *NormalizedRecord) Field(role Role) string {
	switch role {
	case RoleSector:
		return r.Sector
	case RoleLeader:
		return r.Leader
	case RolePainFlag:
		return r.PainFlag
	case RolePainLocation:
		return r.PainLocation
	case RoleTimestamp:
		return r.Month
	}
	return ""
}

// ExplodedRecord pairs a base record with a single token of one of its
// multi-valued cells. Role is the exploded role; a zero Token with
// Role == RoleTimestamp marks an unexploded pass-through row.
type ExplodedRecord struct {
	Record *NormalizedRecord
	Role   Role
	Token  string
}

// FilterCriteria holds the externally supplied predicates of one render cycle.
// Zero values mean "no constraint".
type FilterCriteria struct {
	Month   string   `json:"month,omitempty"`
	Sector  string   `json:"sector,omitempty"`
	Leaders []string `json:"leaders,omitempty"`
}

// RegionCount is one row of a frequency table
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// FrequencyResult is the pain region frequency table ordered by count
// descending, then region ascending.
type FrequencyResult struct {
	Entries     []RegionCount `json:"entries"`
	Affirmative int           `json:"affirmative_records"`
	Tokens      int           `json:"tokens"`
}

// Total returns the sum of all counts
func (f FrequencyResult) Total() int {
	total := 0
	for _, e := range f.Entries {
		total += e.Count
	}
	return total
}

// Counts returns the table as a map
func (f FrequencyResult) Counts() map[string]int {
	m := make(map[string]int, len(f.Entries))
	for _, e := range f.Entries {
		m[e.Region] = e.Count
	}
	return m
}

// Top returns the most frequent region, if any
func (f FrequencyResult) Top() (RegionCount, bool) {
	if len(f.Entries) == 0 {
		return RegionCount{}, false
	}
	return f.Entries[0], true
}
