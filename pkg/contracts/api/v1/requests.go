// Package api contains the v1 HTTP contracts of the survey dashboard.
package api

import (
	"net/url"
	"strings"

	"ergopulse/internal/survey"
)

// Selector values meaning "no constraint"
const (
	SelectAll    = "all"
	SelectTodos  = "todos"
	MaxLeaders   = 50
	MaxValueSize = 200
)

// IsSelectAll reports whether a selector value stands for "every value"
func IsSelectAll(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, SelectAll) || strings.EqualFold(s, SelectTodos)
}

// FrequencyQuery is the query string of the frequency endpoints and the
// chart page. Leaders repeat: ?leader=Ana&leader=Bia.
type FrequencyQuery struct {
	Month   string   `json:"month,omitempty" query:"month" validate:"omitempty,month_bucket"`
	Sector  string   `json:"sector,omitempty" query:"sector" validate:"max=200"`
	Leaders []string `json:"leaders,omitempty" query:"leader" validate:"max=50,dive,max=200"`
}

// ParseFrequencyQuery reads a FrequencyQuery from URL values. Blank leader
// values are skipped.
func ParseFrequencyQuery(values url.Values) FrequencyQuery {
	q := FrequencyQuery{
		Month:  strings.TrimSpace(values.Get("month")),
		Sector: strings.TrimSpace(values.Get("sector")),
	}
	for _, leader := range values["leader"] {
		if leader = strings.TrimSpace(leader); leader != "" {
			q.Leaders = append(q.Leaders, leader)
		}
	}
	return q
}

// Criteria converts the query into pipeline filter criteria, mapping the
// "all" selector values to no constraint.
func (q FrequencyQuery) Criteria() survey.FilterCriteria {
	c := survey.FilterCriteria{Month: q.Month, Sector: q.Sector}
	if IsSelectAll(c.Month) {
		c.Month = ""
	}
	if IsSelectAll(c.Sector) {
		c.Sector = ""
	}
	for _, leader := range q.Leaders {
		if IsSelectAll(leader) {
			return c
		}
	}
	c.Leaders = q.Leaders
	return c
}

// Values renders the query back into URL values for links and exports
func (q FrequencyQuery) Values() url.Values {
	values := url.Values{}
	if q.Month != "" {
		values.Set("month", q.Month)
	}
	if q.Sector != "" {
		values.Set("sector", q.Sector)
	}
	for _, leader := range q.Leaders {
		values.Add("leader", leader)
	}
	return values
}
