// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "clusterconn":
//
//	collector := vm.New()
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithMetrics(collector),
//	)
//
// One collector is meant to be shared by every Connection in the process.
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_connect_total{node="db1:3306"}
//   - myapp_operation_duration_seconds{node="db2:3306",operation="exec"}
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Connect:
//   - {prefix}_connect_total{node} - Counter of physical connect attempts
//   - {prefix}_connect_errors_total{node,kind} - Counter of failed connects
//   - {prefix}_connect_duration_seconds{node} - Histogram of connect + probe latency
//
// Node health:
//   - {prefix}_node_failures_total{node} - Counter of failures charged to the node
//   - {prefix}_node_failure_count{node} - Gauge of the last reported failure count
//   - {prefix}_replication_not_synced_total{node} - Counter of probe rejections
//   - {prefix}_exhausted_total - Counter of calls that ran out of nodes
//
// Operations:
//   - {prefix}_operation_total{node,operation} - Counter of operations
//   - {prefix}_operation_errors_total{node,operation,kind} - Counter of failed operations
//   - {prefix}_operation_retries_total{operation} - Counter of failovers
//   - {prefix}_operation_duration_seconds{node,operation} - Histogram of operation latency
//
// The kind label is one of "transport", "cluster_not_ready" or "fatal".
package vm
