package metrics

import (
	"time"
)

// Match outcomes
const (
	OutcomeLinked    = "linked"
	OutcomeAmbiguous = "ambiguous"
	OutcomeMissing   = "missing"
)

// RecordMatchPass records one match pass and the outcome of every exchange
// it examined.
func (r *Registry) RecordMatchPass(pool string, linked, ambiguous, missing int, duration time.Duration) {
	r.MatchPassesTotal.WithLabelValues(pool).Inc()
	r.MatchExchangesTotal.WithLabelValues(pool, OutcomeLinked).Add(float64(linked))
	r.MatchExchangesTotal.WithLabelValues(pool, OutcomeAmbiguous).Add(float64(ambiguous))
	r.MatchExchangesTotal.WithLabelValues(pool, OutcomeMissing).Add(float64(missing))
	r.MatchDuration.WithLabelValues(pool).Observe(duration.Seconds())
}

// SetUnlinked sets the number of unlinked exchanges of a database
func (r *Registry) SetUnlinked(database string, n int) {
	r.UnlinkedExchanges.WithLabelValues(database).Set(float64(n))
}

// RecordOverride records exchanges changed by a manual override
func (r *Registry) RecordOverride(database string, changed int) {
	r.OverridesTotal.WithLabelValues(database).Add(float64(changed))
}

// RecordStrategy records one application of a named strategy
func (r *Registry) RecordStrategy(name string) {
	r.StrategiesAppliedTotal.WithLabelValues(name).Inc()
}

// RecordStoreOperation records a store operation
func (r *Registry) RecordStoreOperation(store, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StoreOperationsTotal.WithLabelValues(store, operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// UpdateCatalog sets catalog gauges from a database name -> record count map
func (r *Registry) UpdateCatalog(records map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CatalogRecords.Reset()
	for name, n := range records {
		r.CatalogRecords.WithLabelValues(name).Set(float64(n))
	}
	r.CatalogDatabases.Set(float64(len(records)))
}

// RecordExport records an unlinked exchange export
func (r *Registry) RecordExport(destination string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.ExportsTotal.WithLabelValues(destination, status).Inc()
}
