package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

func TestRouterHealthz(t *testing.T) {
	r := NewRouter(Deps{Logger: logger.New(logger.Options{ServiceName: "routes-test"})})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestRouterMetricsExposedWhenWired(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := NewRouter(Deps{
		Logger:        logger.New(logger.Options{ServiceName: "routes-test"}),
		MetricsGather: registry,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	bare := NewRouter(Deps{Logger: logger.New(logger.Options{ServiceName: "routes-test"})})
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a gatherer, got %d", rec.Code)
	}
}
