package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "x, y"}}},
			want:    "a,b\n1,\"x, y\"\n",
		},
		{
			name:    "bom prefix",
			options: WriteOptions{Headers: []string{"Região"}, BOMPrefix: true},
			want:    "\ufeffRegião\n",
		},
		{
			name:    "semicolon",
			options: WriteOptions{Records: [][]string{{"1", "2"}}, Comma: ';'},
			want:    "1;2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "freq.csv")
	err := WriteFile(path, func(w io.Writer) error {
		return WriteCSV(w, WriteOptions{Headers: []string{"x"}, Records: [][]string{{"1"}}})
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"1"}}, records)

	boom := errors.New("boom")
	assert.ErrorIs(t, WriteFile(path, func(io.Writer) error { return boom }), boom)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Contains(t, f.ContentType(), "spreadsheetml")
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
