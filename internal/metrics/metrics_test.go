package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountOperationOutcome(t *testing.T) {
	before := testutil.ToFloat64(Operations.WithLabelValues("task", "create", "error"))
	CountOperation("task", "create", errors.New("boom"))
	after := testutil.ToFloat64(Operations.WithLabelValues("task", "create", "error"))
	if after-before != 1 {
		t.Errorf("error outcome delta = %v, want 1", after-before)
	}

	before = testutil.ToFloat64(Operations.WithLabelValues("task", "create", "ok"))
	CountOperation("task", "create", nil)
	after = testutil.ToFloat64(Operations.WithLabelValues("task", "create", "ok"))
	if after-before != 1 {
		t.Errorf("ok outcome delta = %v, want 1", after-before)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveStore("fs", "get", time.Now())
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "othala_store_operation_duration_seconds") {
		t.Error("store latency histogram missing from exposition")
	}
}
