package commitstore

import "expvar"

var (
	metricRecords        = expvar.NewInt("commitstore_records_total")
	metricRemovals       = expvar.NewInt("commitstore_removals_total")
	metricBackendFailure = expvar.NewInt("commitstore_backend_failures_total")
)
