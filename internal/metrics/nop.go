// Package metrics provides internal metrics utilities.
package metrics

import "github.com/nalgoo/cluster-connection/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Connect
// ----------------------

// IncConnectTotal discards the metric.
func (m *NopMetrics) IncConnectTotal(_ types.NodeAddress) {}

// IncConnectError discards the metric.
func (m *NopMetrics) IncConnectError(_ types.NodeAddress, _ types.ErrorKind) {}

// ObserveConnectDuration discards the metric.
func (m *NopMetrics) ObserveConnectDuration(_ types.NodeAddress, _ float64) {}

// ----------------------
// Node Health
// ----------------------

// IncNodeFailure discards the metric.
func (m *NopMetrics) IncNodeFailure(_ types.NodeAddress) {}

// SetNodeFailureCount discards the metric.
func (m *NopMetrics) SetNodeFailureCount(_ types.NodeAddress, _ int) {}

// IncReplicationNotSynced discards the metric.
func (m *NopMetrics) IncReplicationNotSynced(_ types.NodeAddress) {}

// IncExhausted discards the metric.
func (m *NopMetrics) IncExhausted() {}

// ----------------------
// Operations
// ----------------------

// IncOperationTotal discards the metric.
func (m *NopMetrics) IncOperationTotal(_ types.NodeAddress, _ string) {}

// IncOperationError discards the metric.
func (m *NopMetrics) IncOperationError(_ types.NodeAddress, _ string, _ types.ErrorKind) {}

// IncOperationRetry discards the metric.
func (m *NopMetrics) IncOperationRetry(_ string) {}

// ObserveOperationDuration discards the metric.
func (m *NopMetrics) ObserveOperationDuration(_ types.NodeAddress, _ string, _ float64) {}
