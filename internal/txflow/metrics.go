package txflow

import "expvar"

var (
	metricStarted   = expvar.NewInt("txflow_started_total")
	metricSucceeded = expvar.NewInt("txflow_succeeded_total")
	metricFailed    = expvar.NewInt("txflow_failed_total")
	metricBusy      = expvar.NewInt("txflow_busy_rejections_total")
)
