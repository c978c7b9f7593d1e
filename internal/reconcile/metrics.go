package reconcile

import "expvar"

var metricPurged = expvar.NewInt("reconcile_purged_total")
