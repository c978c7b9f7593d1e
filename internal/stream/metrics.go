package stream

import "expvar"

var (
	metricPublished = expvar.NewInt("stream_events_published_total")
	metricDropped   = expvar.NewInt("stream_events_dropped_total")
)
