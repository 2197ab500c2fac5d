package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(certsIssued)
	IncIssued()
	if got := testutil.ToFloat64(certsIssued); got != before+1 {
		t.Fatalf("issued counter %v want %v", got, before+1)
	}
	IncVerified("revoked")
	if got := testutil.ToFloat64(certsVerified.WithLabelValues("revoked")); got < 1 {
		t.Fatalf("verified counter %v", got)
	}
}

func TestStoreUp(t *testing.T) {
	SetStoreUp(true)
	if got := testutil.ToFloat64(storeUp); got != 1 {
		t.Fatalf("store up %v", got)
	}
	SetStoreUp(false)
	if got := testutil.ToFloat64(storeUp); got != 0 {
		t.Fatalf("store up %v", got)
	}
}
