package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/nalgoo/cluster-connection/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Connect
	ConnectTotal    map[types.NodeAddress]int64
	ConnectErrors   map[types.NodeAddress]map[types.ErrorKind]int64
	ConnectDuration map[types.NodeAddress][]float64

	// Node health
	NodeFailures       map[types.NodeAddress]int64
	NodeFailureCount   map[types.NodeAddress]int
	ReplicationSkipped map[types.NodeAddress]int64

	// Operations, keyed by operation name
	OperationTotal  map[string]int64
	OperationErrors map[string]map[types.ErrorKind]int64
	OperationRetry  map[string]int64

	// Atomic counters for quick access
	exhausted      atomic.Int64
	totalRetries   atomic.Int64
	totalFailures  atomic.Int64
	totalDurations atomic.Int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	m := &TestMetricsCollector{}
	m.reset()

	return m
}

func (m *TestMetricsCollector) reset() {
	m.ConnectTotal = make(map[types.NodeAddress]int64)
	m.ConnectErrors = make(map[types.NodeAddress]map[types.ErrorKind]int64)
	m.ConnectDuration = make(map[types.NodeAddress][]float64)
	m.NodeFailures = make(map[types.NodeAddress]int64)
	m.NodeFailureCount = make(map[types.NodeAddress]int)
	m.ReplicationSkipped = make(map[types.NodeAddress]int64)
	m.OperationTotal = make(map[string]int64)
	m.OperationErrors = make(map[string]map[types.ErrorKind]int64)
	m.OperationRetry = make(map[string]int64)
	m.exhausted.Store(0)
	m.totalRetries.Store(0)
	m.totalFailures.Store(0)
	m.totalDurations.Store(0)
}

// ----------------------
// Connect
// ----------------------

// IncConnectTotal implements types.MetricsCollector.
func (m *TestMetricsCollector) IncConnectTotal(node types.NodeAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectTotal[node]++
}

// IncConnectError implements types.MetricsCollector.
func (m *TestMetricsCollector) IncConnectError(node types.NodeAddress, kind types.ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErrors[node] == nil {
		m.ConnectErrors[node] = make(map[types.ErrorKind]int64)
	}
	m.ConnectErrors[node][kind]++
}

// ObserveConnectDuration implements types.MetricsCollector.
func (m *TestMetricsCollector) ObserveConnectDuration(node types.NodeAddress, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectDuration[node] = append(m.ConnectDuration[node], seconds)
}

// ----------------------
// Node health
// ----------------------

// IncNodeFailure implements types.MetricsCollector.
func (m *TestMetricsCollector) IncNodeFailure(node types.NodeAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NodeFailures[node]++
	m.totalFailures.Add(1)
}

// SetNodeFailureCount implements types.MetricsCollector.
func (m *TestMetricsCollector) SetNodeFailureCount(node types.NodeAddress, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NodeFailureCount[node] = count
}

// IncReplicationNotSynced implements types.MetricsCollector.
func (m *TestMetricsCollector) IncReplicationNotSynced(node types.NodeAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplicationSkipped[node]++
}

// IncExhausted implements types.MetricsCollector.
func (m *TestMetricsCollector) IncExhausted() {
	m.exhausted.Add(1)
}

// ----------------------
// Operations
// ----------------------

// IncOperationTotal implements types.MetricsCollector.
func (m *TestMetricsCollector) IncOperationTotal(_ types.NodeAddress, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OperationTotal[operation]++
}

// IncOperationError implements types.MetricsCollector.
func (m *TestMetricsCollector) IncOperationError(_ types.NodeAddress, operation string, kind types.ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OperationErrors[operation] == nil {
		m.OperationErrors[operation] = make(map[types.ErrorKind]int64)
	}
	m.OperationErrors[operation][kind]++
}

// IncOperationRetry implements types.MetricsCollector.
func (m *TestMetricsCollector) IncOperationRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OperationRetry[operation]++
	m.totalRetries.Add(1)
}

// ObserveOperationDuration implements types.MetricsCollector.
func (m *TestMetricsCollector) ObserveOperationDuration(_ types.NodeAddress, _ string, _ float64) {
	m.totalDurations.Add(1)
}

// ----------------------
// Getters
// ----------------------

// GetConnectTotal returns the connect attempts recorded for node.
func (m *TestMetricsCollector) GetConnectTotal(node types.NodeAddress) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConnectTotal[node]
}

// GetNodeFailures returns the failures charged to node.
func (m *TestMetricsCollector) GetNodeFailures(node types.NodeAddress) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.NodeFailures[node]
}

// GetExhausted returns how many calls ran out of nodes.
func (m *TestMetricsCollector) GetExhausted() int64 {
	return m.exhausted.Load()
}

// GetTotalRetries returns the total failovers across all operations.
func (m *TestMetricsCollector) GetTotalRetries() int64 {
	return m.totalRetries.Load()
}

// GetTotalFailures returns the total failures across all nodes.
func (m *TestMetricsCollector) GetTotalFailures() int64 {
	return m.totalFailures.Load()
}

// GetObservedOperations returns how many operation durations were recorded.
func (m *TestMetricsCollector) GetObservedOperations() int64 {
	return m.totalDurations.Load()
}

// Reset clears all recorded metrics.
func (m *TestMetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}
