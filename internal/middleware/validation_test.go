package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "ergopulse/internal/errors"
	api "ergopulse/pkg/contracts/api/v1"
)

func TestValidator_FrequencyQuery(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		values     url.Values
		wantFields []string
	}{
		{name: "empty", values: url.Values{}},
		{name: "month bucket", values: url.Values{"month": {"2025-03"}}},
		{name: "all months", values: url.Values{"month": {"all"}}},
		{name: "todos", values: url.Values{"month": {"Todos"}}},
		{name: "bad month", values: url.Values{"month": {"03/2025"}}, wantFields: []string{"month"}},
		{name: "month out of range", values: url.Values{"month": {"2025-13"}}, wantFields: []string{"month"}},
		{name: "sector too long", values: url.Values{"sector": {strings.Repeat("x", 201)}}, wantFields: []string{"sector"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(api.ParseFrequencyQuery(tt.values))
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)

			fields := make([]string, 0, len(details.Errors))
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("multipart/form-data")(okHandler)

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "get skips", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "missing", method: http.MethodPost, wantStatus: http.StatusBadRequest},
		{name: "multipart with boundary", method: http.MethodPost, contentType: "multipart/form-data; boundary=xyz", wantStatus: http.StatusOK},
		{name: "json", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/survey/upload", nil)
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
