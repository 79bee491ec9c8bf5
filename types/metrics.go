package types

// MetricsCollector defines methods for collecting operational metrics.
//
// Node-scoped methods accept the node address for labeling.
// Implementations should be thread-safe: one collector is usually shared by
// many logical connections.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/nalgoo/cluster-connection/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Connect
	// ----------------------

	// IncConnectTotal increments the physical connect attempts counter.
	IncConnectTotal(node NodeAddress)

	// IncConnectError increments the failed connect counter.
	IncConnectError(node NodeAddress, kind ErrorKind)

	// ObserveConnectDuration records the duration of a connect attempt,
	// including the replication probe, in seconds.
	ObserveConnectDuration(node NodeAddress, seconds float64)

	// ----------------------
	// Node Health
	// ----------------------

	// IncNodeFailure increments the counter when a failure is recorded
	// against a node.
	IncNodeFailure(node NodeAddress)

	// SetNodeFailureCount sets the current failure count gauge for a node.
	SetNodeFailureCount(node NodeAddress, count int)

	// IncReplicationNotSynced increments the counter when the replication
	// probe rejects a node.
	IncReplicationNotSynced(node NodeAddress)

	// IncExhausted increments the counter when every node is exhausted.
	IncExhausted()

	// ----------------------
	// Operations
	// ----------------------

	// IncOperationTotal increments the pass-through operation counter.
	IncOperationTotal(node NodeAddress, operation string)

	// IncOperationError increments the failed operation counter.
	IncOperationError(node NodeAddress, operation string, kind ErrorKind)

	// IncOperationRetry increments the counter when an operation is re-run
	// on another node.
	IncOperationRetry(operation string)

	// ObserveOperationDuration records an operation duration in seconds.
	ObserveOperationDuration(node NodeAddress, operation string, seconds float64)
}
