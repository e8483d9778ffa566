package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.MatchPassesTotal == nil {
		t.Error("MatchPassesTotal not initialized")
	}
	if r.UnlinkedExchanges == nil {
		t.Error("UnlinkedExchanges not initialized")
	}
	if r.StoreOperationsTotal == nil {
		t.Error("StoreOperationsTotal not initialized")
	}
	if r.ExportsTotal == nil {
		t.Error("ExportsTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
	if OrDefault(nil) != r1 {
		t.Error("OrDefault(nil) should return the default registry")
	}
	own := NewRegistry()
	if OrDefault(own) != own {
		t.Error("OrDefault should keep an explicit registry")
	}
}

func TestRecordMatchPass(t *testing.T) {
	r := NewRegistry()

	r.RecordMatchPass("self", 4, 0, 2, 2*time.Millisecond)
	r.RecordMatchPass("self", 1, 1, 0, time.Millisecond)

	counter, err := r.MatchExchangesTotal.GetMetricWithLabelValues("self", OutcomeLinked)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 5 {
		t.Errorf("linked counter = %v, want 5", metric.Counter.GetValue())
	}

	if got := testutil.ToFloat64(r.MatchPassesTotal.WithLabelValues("self")); got != 2 {
		t.Errorf("passes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.MatchExchangesTotal.WithLabelValues("self", OutcomeAmbiguous)); got != 1 {
		t.Errorf("ambiguous = %v, want 1", got)
	}
}

func TestSetUnlinkedAndOverride(t *testing.T) {
	r := NewRegistry()

	r.SetUnlinked("bike_example", 3)
	r.SetUnlinked("bike_example", 1)
	r.RecordOverride("bike_example", 1)
	r.RecordOverride("bike_example", 0)

	if got := testutil.ToFloat64(r.UnlinkedExchanges.WithLabelValues("bike_example")); got != 1 {
		t.Errorf("unlinked gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.OverridesTotal.WithLabelValues("bike_example")); got != 1 {
		t.Errorf("overrides = %v, want 1", got)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordStoreOperation("sqlite", "write_database", nil, 10*time.Millisecond)
	r.RecordStoreOperation("sqlite", "write_database", errors.New("locked"), time.Millisecond)

	if got := testutil.ToFloat64(r.StoreOperationsTotal.WithLabelValues("sqlite", "write_database", "success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.StoreOperationsTotal.WithLabelValues("sqlite", "write_database", "error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
}

func TestUpdateCatalog(t *testing.T) {
	r := NewRegistry()

	r.UpdateCatalog(map[string]int{"biosphere": 10, "bike_example": 6})
	r.UpdateCatalog(map[string]int{"biosphere": 12})

	if got := testutil.ToFloat64(r.CatalogDatabases); got != 1 {
		t.Errorf("databases = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.CatalogRecords); got != 1 {
		t.Errorf("record series = %d, want 1 after reset", got)
	}
}

func TestExposition(t *testing.T) {
	r := NewRegistry()
	r.RecordExport("s3", nil)
	r.RecordStrategy("normalize_units")

	expected := `
# HELP lci_unlinked_exports_total Unlinked exchange reports exported, by destination and status
# TYPE lci_unlinked_exports_total counter
lci_unlinked_exports_total{destination="s3",status="success"} 1
`
	if err := testutil.GatherAndCompare(r.GetPrometheusRegistry(), strings.NewReader(expected), "lci_unlinked_exports_total"); err != nil {
		t.Error(err)
	}
}
