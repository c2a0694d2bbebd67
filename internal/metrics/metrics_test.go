package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(requestTotal.WithLabelValues("GET", OutcomeOversized, "413"))

	ObserveRequest("GET", OutcomeOversized, 413, 10*time.Millisecond)

	after := testutil.ToFloat64(requestTotal.WithLabelValues("GET", OutcomeOversized, "413"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestObserveRequestWithoutResponse(t *testing.T) {
	ObserveRequest("POST", OutcomeNetwork, 0, time.Second)

	if got := testutil.ToFloat64(requestTotal.WithLabelValues("POST", OutcomeNetwork, "none")); got < 1 {
		t.Fatalf("expected network failures to be labelled status=none, got %v", got)
	}
}

func TestSnapshotIncludesHistogramCount(t *testing.T) {
	ObserveRequest("PUT", OutcomeOK, 200, time.Millisecond)

	samples, err := Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	found := false
	for _, s := range samples {
		if s.Name == "wkctl_request_duration_seconds_count" && s.Labels["method"] == "PUT" && s.Value >= 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("histogram count missing from snapshot: %+v", samples)
	}
}
