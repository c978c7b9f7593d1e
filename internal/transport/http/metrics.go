package httptransport

import "expvar"

var (
	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")
)

var metricErrorsByCode = expvar.NewMap("http_errors_total")
