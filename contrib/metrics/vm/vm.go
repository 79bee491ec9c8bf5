package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/nalgoo/cluster-connection/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "clusterconn"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// Node-independent metrics are pre-created at initialization. Node-labelled
// metrics are created on first use because the node list is only known to
// the connections sharing the collector.
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	exhausted *metrics.Counter

	// failureCounts holds one *atomic.Int64 per node for the failure gauge.
	failureCounts sync.Map
}

// Compile-time assertion.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "clusterconn",
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.exhausted = c.set.NewCounter(c.prefix + "_exhausted_total")

	return c
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

func (c *Collector) counter(format string, args ...any) *metrics.Counter {
	return c.set.GetOrCreateCounter(c.prefix + fmt.Sprintf(format, args...))
}

func (c *Collector) histogram(format string, args ...any) *metrics.Histogram {
	return c.set.GetOrCreateHistogram(c.prefix + fmt.Sprintf(format, args...))
}

// ----------------------
// Connect
// ----------------------

// IncConnectTotal increments the physical connect attempts counter.
func (c *Collector) IncConnectTotal(node types.NodeAddress) {
	c.counter(`_connect_total{node=%q}`, node.String()).Inc()
}

// IncConnectError increments the failed connect counter.
func (c *Collector) IncConnectError(node types.NodeAddress, kind types.ErrorKind) {
	c.counter(`_connect_errors_total{node=%q,kind=%q}`, node.String(), kind.String()).Inc()
}

// ObserveConnectDuration records the duration of a connect attempt.
func (c *Collector) ObserveConnectDuration(node types.NodeAddress, seconds float64) {
	c.histogram(`_connect_duration_seconds{node=%q}`, node.String()).Update(seconds)
}

// ----------------------
// Node Health
// ----------------------

// IncNodeFailure increments the counter of failures charged to a node.
func (c *Collector) IncNodeFailure(node types.NodeAddress) {
	c.counter(`_node_failures_total{node=%q}`, node.String()).Inc()
}

// SetNodeFailureCount sets the failure count gauge for a node.
//
// Several connections may share a collector; the gauge shows the value most
// recently reported by any of them.
func (c *Collector) SetNodeFailureCount(node types.NodeAddress, count int) {
	v, loaded := c.failureCounts.LoadOrStore(node, new(atomic.Int64))
	value := v.(*atomic.Int64)
	value.Store(int64(count))

	if !loaded {
		c.set.GetOrCreateGauge(fmt.Sprintf(`%s_node_failure_count{node=%q}`, c.prefix, node.String()), func() float64 {
			return float64(value.Load())
		})
	}
}

// IncReplicationNotSynced increments the counter of probe rejections.
func (c *Collector) IncReplicationNotSynced(node types.NodeAddress) {
	c.counter(`_replication_not_synced_total{node=%q}`, node.String()).Inc()
}

// IncExhausted increments the counter of calls that ran out of nodes.
func (c *Collector) IncExhausted() {
	c.exhausted.Inc()
}

// ----------------------
// Operations
// ----------------------

// IncOperationTotal increments the operation counter.
func (c *Collector) IncOperationTotal(node types.NodeAddress, operation string) {
	c.counter(`_operation_total{node=%q,operation=%q}`, node.String(), operation).Inc()
}

// IncOperationError increments the failed operation counter.
func (c *Collector) IncOperationError(node types.NodeAddress, operation string, kind types.ErrorKind) {
	c.counter(`_operation_errors_total{node=%q,operation=%q,kind=%q}`, node.String(), operation, kind.String()).Inc()
}

// IncOperationRetry increments the counter of operations re-run on another node.
func (c *Collector) IncOperationRetry(operation string) {
	c.counter(`_operation_retries_total{operation=%q}`, operation).Inc()
}

// ObserveOperationDuration records an operation duration.
func (c *Collector) ObserveOperationDuration(node types.NodeAddress, operation string, seconds float64) {
	c.histogram(`_operation_duration_seconds{node=%q,operation=%q}`, node.String(), operation).Update(seconds)
}
