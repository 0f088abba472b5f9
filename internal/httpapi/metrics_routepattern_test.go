package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelkeeper/internal/lifecycle"
	"modelkeeper/pkg/types"
)

// TestMetricsMiddleware_UsesRoutePattern ensures requests are labeled by the
// chi route pattern instead of the raw URL path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	svc := &mockService{current: types.Instance{ID: "abc"}}
	w := do(t, NewMux(svc), http.MethodGet, "/instances/abc/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte("modelkeeper_http_requests_total")) || !bytes.Contains(body, []byte("/instances/{id}/status")) {
		preview := body
		if len(preview) > 400 {
			preview = preview[:400]
		}
		t.Fatalf("expected modelkeeper_http_requests_total labeled with the route pattern; got: %q", string(preview))
	}
	if bytes.Contains(body, []byte(`path="/instances/abc/status"`)) {
		t.Fatalf("raw path leaked into metric labels")
	}
}

func TestOperationErrorsCounted(t *testing.T) {
	svc := &mockService{err: &lifecycle.RetentionError{ID: "old", Err: errors.New("nope")}}
	_ = do(t, NewMux(svc), http.MethodGet, "/instances/current", "")
	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !bytes.Contains(mrr.Body.Bytes(), []byte(`modelkeeper_http_operation_errors_total{op="current",status="502"}`)) {
		t.Fatalf("operation error not counted")
	}
}
