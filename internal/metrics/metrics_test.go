package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveLookup("bytes", OutcomeDiskHit)
	r.ObserveLookup("bytes", OutcomeDiskHit)
	r.ObserveLookup("bytes", OutcomeMiss)
	r.ObserveFetch("bytes", nil, 10*time.Millisecond)
	r.ObserveFetch("bytes", errors.New("boom"), time.Millisecond)
	r.ObserveStoreFailure(TierDisk)

	if got := testutil.ToFloat64(r.lookups.WithLabelValues("bytes", OutcomeDiskHit)); got != 2 {
		t.Fatalf("expected 2 disk hits, got %v", got)
	}
	if got := testutil.ToFloat64(r.fetches.WithLabelValues("bytes", "error")); got != 1 {
		t.Fatalf("expected 1 failed fetch, got %v", got)
	}
	if got := testutil.ToFloat64(r.storeFailures.WithLabelValues(TierDisk)); got != 1 {
		t.Fatalf("expected 1 store failure, got %v", got)
	}
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveLookup("map", OutcomeMiss)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "fetchcache_lookups_total") {
		t.Fatalf("metrics output missing lookups counter:\n%s", rec.Body.String())
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveLookup("bytes", OutcomeMiss)
	r.ObserveFetch("bytes", nil, time.Second)
	r.ObserveStoreFailure(TierMemory)
	if r.Registry() != nil {
		t.Fatalf("nil recorder should have no registry")
	}
}
