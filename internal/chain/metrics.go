package chain

import "expvar"

var (
	metricReads        = expvar.NewInt("chain_reads_total")
	metricReadFailures = expvar.NewInt("chain_read_failures_total")
	metricSnapshots    = expvar.NewInt("chain_snapshots_total")
)
