package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"predictive-analysis-engine/pkg/common"
)

func TestCorrelationMiddlewareGeneratesIDWhenAbsent(t *testing.T) {
	var seenID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = common.GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	CorrelationMiddleware(next).ServeHTTP(rec, req)

	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get("X-Correlation-Id"))
}

func TestCorrelationMiddlewarePreservesIncomingID(t *testing.T) {
	var seenID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = common.GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-Id", "fixed-id-123")
	CorrelationMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id-123", seenID)
}

func TestMetricsMiddlewareRecordsStatusFromHandler(t *testing.T) {
	router := chi.NewRouter()
	router.With(MetricsMiddleware).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStatusWriterDefaultsToOKWhenNeverExplicitlySet(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	ww.Write([]byte("hello"))

	assert.Equal(t, http.StatusOK, ww.status)
}

func TestStatusWriterCapturesExplicitWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	ww.WriteHeader(http.StatusAccepted)

	assert.Equal(t, http.StatusAccepted, ww.status)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
