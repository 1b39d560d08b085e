package survey

import (
	"strings"
)

// DefaultDelimiter separates tokens in multi-valued cells
const DefaultDelimiter = ","

// Exploder expands multi-valued cells into one row per token.
type Exploder struct {
	delimiter  string
	normalizer *Normalizer
}

// NewExploder creates an Exploder. An empty delimiter selects DefaultDelimiter.
func NewExploder(delimiter string, normalizer *Normalizer) *Exploder {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Exploder{delimiter: delimiter, normalizer: normalizer}
}

// Tokens splits a cell into its canonical tokens. Empty and null tokens are
// discarded; repeated tokens are kept.
func (e *Exploder) Tokens(role Role, cell string) []string {
	if e.normalizer.IsNull(cell) {
		return nil
	}
	parts := strings.Split(cell, e.delimiter)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tok, ok := e.normalizer.Canonical(role, part)
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Explode emits one ExplodedRecord per token of the role's cell, in record
// order then token order. Records with no valid token contribute nothing.
func (e *Exploder) Explode(records []*NormalizedRecord, role Role) []ExplodedRecord {
	out := make([]ExplodedRecord, 0, len(records))
	for _, rec := range records {
		for _, tok := range e.Tokens(role, rec.Field(role)) {
			out = append(out, ExplodedRecord{Record: rec, Role: role, Token: tok})
		}
	}
	return out
}

// Passthrough wraps records without exploding them, for filter passes that
// do not involve a multi-valued column.
func Passthrough(records []*NormalizedRecord) []ExplodedRecord {
	out := make([]ExplodedRecord, len(records))
	for i, rec := range records {
		out[i] = ExplodedRecord{Record: rec, Role: RoleTimestamp}
	}
	return out
}

// Distinct returns the base records of rows, first occurrence order, each once.
func Distinct(rows []ExplodedRecord) []*NormalizedRecord {
	seen := make(map[*NormalizedRecord]struct{}, len(rows))
	out := make([]*NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.Record]; dup {
			continue
		}
		seen[row.Record] = struct{}{}
		out = append(out, row.Record)
	}
	return out
}
