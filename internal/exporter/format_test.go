package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, total int
		expected    string
	}{
		{"zero total", 3, 0, "0.0"},
		{"half", 1, 2, "50.0"},
		{"third", 1, 3, "33.3"},
		{"whole", 4, 4, "100.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatPercent(tt.part, tt.total))
		})
	}
}
