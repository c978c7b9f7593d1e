package poller

import "expvar"

var metricWatches = expvar.NewInt("poller_active_watches")
