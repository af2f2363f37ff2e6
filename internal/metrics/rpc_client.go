package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerRPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierpay",
		Subsystem: "ledger_rpc",
		Name:      "operations_total",
		Help:      "Count of ledger RPC operations.",
	}, []string{"operation", "cluster", "status"})
	ledgerRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierpay",
		Subsystem: "ledger_rpc",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "cluster", "status"})
)

// RPCClient tracks metrics for RPC calls to the ledger.
type RPCClient struct {
	cluster string
}

// NewRPCClient constructs a metrics collector for RPC calls against cluster.
func NewRPCClient(cluster string) *RPCClient {
	if cluster == "" {
		cluster = "unknown"
	}
	return &RPCClient{cluster: cluster}
}

// Observe records a single RPC call outcome and duration.
func (m RPCClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)

	ledgerRPCRequestsTotal.WithLabelValues(operation, m.cluster, status).Inc()
	ledgerRPCRequestDuration.WithLabelValues(operation, m.cluster, status).Observe(time.Since(started).Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
