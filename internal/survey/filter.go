package survey

// Predicate tests one row. Predicates are pure, so their order never changes
// the result of Apply.
type Predicate func(ExplodedRecord) bool

// FilterEngine turns FilterCriteria into predicates over a snapshot's rows.
type FilterEngine struct {
	normalizer *Normalizer
	schema     SchemaMap
}

// NewFilterEngine creates a FilterEngine for one resolved schema
func NewFilterEngine(normalizer *Normalizer, schema SchemaMap) *FilterEngine {
	return &FilterEngine{normalizer: normalizer, schema: schema}
}

// Canonicalize returns criteria with every value normalized the same way as
// the records. Constraints on columns the schema lacks are cleared.
func (f *FilterEngine) Canonicalize(c FilterCriteria) FilterCriteria {
	out := FilterCriteria{Month: Clean(c.Month)}
	if f.schema.Has(RoleSector) {
		if v, ok := f.normalizer.Canonical(RoleSector, c.Sector); ok {
			out.Sector = v
		}
	}
	if f.schema.Has(RoleLeader) {
		for _, l := range c.Leaders {
			if v, ok := f.normalizer.Canonical(RoleLeader, l); ok {
				out.Leaders = append(out.Leaders, v)
			}
		}
	}
	return out
}

// Predicates builds one predicate per supplied constraint. The criteria must
// already be canonical.
func (f *FilterEngine) Predicates(c FilterCriteria) []Predicate {
	var preds []Predicate
	if c.Month != "" {
		preds = append(preds, MonthIs(c.Month))
	}
	if c.Sector != "" && f.schema.Has(RoleSector) {
		preds = append(preds, SectorIs(c.Sector))
	}
	if len(c.Leaders) > 0 && f.schema.Has(RoleLeader) {
		preds = append(preds, LeaderIn(c.Leaders))
	}
	return preds
}

// MonthIs matches rows whose month bucket equals month
func MonthIs(month string) Predicate {
	return func(r ExplodedRecord) bool {
		return r.Record.Month == month
	}
}

// SectorIs matches sector-exploded rows whose token equals sector exactly.
// Rows not exploded on sector never match.
func SectorIs(sector string) Predicate {
	return func(r ExplodedRecord) bool {
		return r.Role == RoleSector && r.Token == sector
	}
}

// LeaderIn matches rows whose leader is one of leaders
func LeaderIn(leaders []string) Predicate {
	set := make(map[string]struct{}, len(leaders))
	for _, l := range leaders {
		set[l] = struct{}{}
	}
	return func(r ExplodedRecord) bool {
		_, ok := set[r.Record.Leader]
		return ok
	}
}

// Apply returns the rows for which every predicate holds, in input order.
func Apply(rows []ExplodedRecord, preds ...Predicate) []ExplodedRecord {
	out := make([]ExplodedRecord, 0, len(rows))
	for _, row := range rows {
		if matchAll(row, preds) {
			out = append(out, row)
		}
	}
	return out
}

func matchAll(row ExplodedRecord, preds []Predicate) bool {
	for _, p := range preds {
		if !p(row) {
			return false
		}
	}
	return true
}
