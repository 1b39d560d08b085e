package survey

import (
	"fmt"
	"strings"
)

// NoFallback marks a rule without a positional fallback
const NoFallback = -1

// Column identifies a raw column by position and label.
type Column struct {
	Index      int    `json:"index"`
	Label      string `json:"label"`
	Positional bool   `json:"positional,omitempty"`
}

// RoleRule is one entry of the schema descriptor. A column matches when its
// folded label contains every keyword of at least one pattern.
type RoleRule struct {
	Role     Role
	Required bool
	Patterns [][]string
	Fallback int
}

// DefaultRules returns the descriptor for the standard survey form. The pain
// flag and pain location fallbacks are the positions of those questions in
// the form template.
func DefaultRules(painFlagPos, painLocationPos int) []RoleRule {
	return []RoleRule{
		{
			Role:     RoleTimestamp,
			Required: true,
			Patterns: [][]string{{"carimbo"}, {"timestamp"}, {"data"}, {"date"}},
			Fallback: 0,
		},
		{
			Role:     RolePainFlag,
			Required: true,
			Patterns: [][]string{{"dor", "sentindo"}, {"dor", "hoje"}, {"pain", "feeling"}, {"pain", "today"}},
			Fallback: painFlagPos,
		},
		{
			Role:     RolePainLocation,
			Required: true,
			Patterns: [][]string{{"local", "dor"}, {"location", "pain"}, {"local"}, {"location"}},
			Fallback: painLocationPos,
		},
		{
			Role:     RoleSector,
			Patterns: [][]string{{"setor"}, {"sector"}},
			Fallback: NoFallback,
		},
		{
			Role:     RoleLeader,
			Patterns: [][]string{{"lider"}, {"leader"}, {"gestor"}},
			Fallback: NoFallback,
		},
	}
}

// SchemaMap is the resolved role to column mapping of one dataset snapshot.
type SchemaMap struct {
	Columns  map[Role]Column `json:"-"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Column returns the column resolved for role
func (m SchemaMap) Column(role Role) (Column, bool) {
	c, ok := m.Columns[role]
	return c, ok
}

// Has reports whether role was resolved
func (m SchemaMap) Has(role Role) bool {
	_, ok := m.Columns[role]
	return ok
}

// Describe returns a role name to column label view for diagnostics
func (m SchemaMap) Describe() map[string]Column {
	out := make(map[string]Column, len(m.Columns))
	for role, col := range m.Columns {
		out[role.String()] = col
	}
	return out
}

// SchemaResolver maps semantic roles to raw columns using a declarative
// descriptor evaluated once per load.
type SchemaResolver struct {
	rules []RoleRule
}

// NewSchemaResolver creates a resolver; nil rules select DefaultRules(4, 5).
func NewSchemaResolver(rules []RoleRule) *SchemaResolver {
	if rules == nil {
		rules = DefaultRules(4, 5)
	}
	folded := make([]RoleRule, len(rules))
	for i, rule := range rules {
		folded[i] = rule
		folded[i].Patterns = make([][]string, len(rule.Patterns))
		for j, pattern := range rule.Patterns {
			keys := make([]string, len(pattern))
			for k, kw := range pattern {
				keys[k] = Fold(kw)
			}
			folded[i].Patterns[j] = keys
		}
	}
	return &SchemaResolver{rules: folded}
}

// Resolve produces the SchemaMap for headers. Rules run in descriptor order and
// a claimed column is never reused.
func (r *SchemaResolver) Resolve(headers []string) (SchemaMap, error) {
	labels := make([]string, len(headers))
	for i, h := range headers {
		labels[i] = Fold(h)
	}

	schema := SchemaMap{Columns: make(map[Role]Column, len(r.rules))}
	claimed := make(map[int]bool, len(r.rules))

	for _, rule := range r.rules {
		idx := matchColumn(rule, labels, claimed)
		positional := false
		if idx < 0 && rule.Fallback >= 0 && rule.Fallback < len(headers) && !claimed[rule.Fallback] {
			idx = rule.Fallback
			positional = true
		}

		if idx < 0 {
			if rule.Required {
				return SchemaMap{}, &SchemaError{Role: rule.Role, Headers: headers}
			}
			schema.Warnings = append(schema.Warnings,
				fmt.Sprintf("optional column %q not found; %s filter disabled", rule.Role, rule.Role))
			continue
		}

		claimed[idx] = true
		schema.Columns[rule.Role] = Column{Index: idx, Label: headers[idx], Positional: positional}
		if positional {
			schema.Warnings = append(schema.Warnings,
				fmt.Sprintf("column %q resolved by position %d", rule.Role, idx))
		}
	}

	return schema, nil
}

// matchColumn tries patterns in priority order; within a pattern the leftmost
// unclaimed column wins.
func matchColumn(rule RoleRule, labels []string, claimed map[int]bool) int {
	for _, pattern := range rule.Patterns {
		for i, label := range labels {
			if !claimed[i] && containsAll(label, pattern) {
				return i
			}
		}
	}
	return -1
}

func containsAll(label string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(label, kw) {
			return false
		}
	}
	return true
}
