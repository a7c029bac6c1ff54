package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveHelpersDoNotPanic(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveCandidates("DirectoryListing", 3)
	ObserveCandidates("DirectoryListing", 0)
	ObserveStored(2)
	ObserveCycle("ok")
	ObserveAdapterError("ClassifiedAd")
	ObserveRateLimitDelay("between_requests", 250*time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, "/api/buyers", http.StatusOK, 10*time.Millisecond)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveCycle("ok")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "buyerscout_cycles_total") {
		t.Fatal("expected cycle counter in metrics output")
	}
}
