package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ergopulse/internal/infrastructure"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID, traceID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = middleware.GetReqID(r.Context())
				traceID = infrastructure.GetTraceID(r.Context())
			})

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				r.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			RequestID(next).ServeHTTP(w, r)

			header := w.Header().Get(middleware.RequestIDHeader)
			assert.Equal(t, header, ctxID)
			assert.Equal(t, header, traceID)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, header)
			} else {
				_, err := uuid.Parse(header)
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, discardLogger())
	h := rl.Handler(okHandler)

	request := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/survey/options", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := request("10.0.0.1:5000")
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			var problem map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
			assert.Equal(t, "/errors/rate-limit", problem["type"])
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another port on the same host shares the bucket; another host does not
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1:6000").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.2:5000").Code)
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, discardLogger())
	now := time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	now = now.Add(limiterIdle / 2)
	rl.limiter("10.0.0.2")
	assert.Equal(t, 2, rl.Clients())

	now = now.Add(limiterIdle/2 + time.Second)
	rl.limiter("10.0.0.2")
	assert.Equal(t, 1, rl.Clients())
}

func TestCompress(t *testing.T) {
	body := strings.Repeat("Parte do Corpo,Qtd,Percentual\n", 50)
	h := Compress(5)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/survey/frequency.csv", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(body))

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/api/survey/frequency.csv", nil))
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.Equal(t, body, plain.Body.String())
}

func TestTimeout(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	var deadlineSet bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
		<-r.Context().Done()
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	w := httptest.NewRecorder()
	Timeout(10*time.Millisecond, logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.True(t, deadlineSet)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, logs.String(), "request timeout")
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}, Logger: discardLogger()})(okHandler)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:8080", wantOrigin: "http://localhost:8080", wantStatus: http.StatusOK},
		{name: "foreign origin", method: http.MethodGet, origin: "http://evil.example", wantOrigin: "", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:8080", wantOrigin: "http://localhost:8080", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/survey/options", nil)
			r.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), AdminKeyHeader)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chart", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), ChartAssetsHost)
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
}

func TestAdminKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		header     string
		wantStatus int
		wantDetail string
	}{
		{name: "disabled", key: "", header: "", wantStatus: http.StatusOK},
		{name: "missing", key: "s3cret", header: "", wantStatus: http.StatusUnauthorized, wantDetail: "API key required"},
		{name: "wrong", key: "s3cret", header: "guess", wantStatus: http.StatusUnauthorized, wantDetail: "Invalid API key"},
		{name: "valid", key: "s3cret", header: "s3cret", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/survey/refresh", nil)
			if tt.header != "" {
				r.Header.Set(AdminKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			AdminKey(tt.key, discardLogger())(okHandler).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				assert.True(t, strings.Contains(w.Body.String(), tt.wantDetail), w.Body.String())
			}
		})
	}
}

func TestGetRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(r))

	r.Header.Set("X-Real-IP", "192.168.0.9")
	assert.Equal(t, "192.168.0.9", GetRealIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", GetRealIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.2")
	assert.Equal(t, "198.51.100.4", GetRealIP(r))
}
