package clusterconn

import "github.com/nalgoo/cluster-connection/types"

// Type aliases for convenience - re-export from types package.
type (
	NodeAddress      = types.NodeAddress
	SelectionMode    = types.SelectionMode
	ConnectionState  = types.ConnectionState
	ErrorKind        = types.ErrorKind
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Re-export selection mode constants for convenience.
const (
	RoundRobin = types.RoundRobin
	Priority   = types.Priority
)

// Re-export connection state constants for convenience.
const (
	Disconnected = types.Disconnected
	Connecting   = types.Connecting
	Connected    = types.Connected
)

// Re-export error kind constants for convenience.
const (
	KindTransport       = types.KindTransport
	KindClusterNotReady = types.KindClusterNotReady
	KindFatal           = types.KindFatal
)
