package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gzlog "gamezone/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, nil)

	var seen string
	var ctxLogger *gzlog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = gzlog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.NotEmpty(t, seen)
	_, err := ulid.Parse(seen)
	assert.NoError(t, err, "request ids are ULIDs")
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, gzlog.ComponentTrace, ctxLogger.Component())
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddleware_RequestLoggerCarriesID(t *testing.T) {
	var buf bytes.Buffer
	logger := gzlog.New(gzlog.Config{Handler: slog.NewTextHandler(&buf, nil), Component: gzlog.ComponentApp})
	m := NewMiddleware(nil, logger)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gzlog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil))

	id := rec.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "start, handler and end lines")
	for _, line := range lines {
		assert.Contains(t, line, "request_id="+id)
	}
	assert.Contains(t, lines[0], "HTTP request started")
	assert.Contains(t, lines[1], "inside handler")
	assert.Contains(t, lines[2], "status_code=200")
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	status := http.StatusOK
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	status = http.StatusBadGateway
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	assert.Equal(t, int64(2), got.TotalRequests)
	assert.Equal(t, int64(1), got.ServerErrors)
	assert.GreaterOrEqual(t, got.AverageResponseTime, int64(0))
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
