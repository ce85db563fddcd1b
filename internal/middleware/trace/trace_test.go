package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	mw := NewMiddleware(nil)

	var seen string
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))

	require.NotEmpty(t, seen)
	assert.Contains(t, seen, "req_")
}

func TestMetricsRecordLastRequest(t *testing.T) {
	mw := NewMiddleware(nil)

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	}

	m := mw.GetMetrics()
	assert.Equal(t, int64(3), m.TotalRequests)
	assert.Positive(t, m.LastResponseTime, "duration of the most recent request is recorded")
}
