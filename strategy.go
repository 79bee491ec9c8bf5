package clusterconn

import (
	"context"

	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/types"
)

// StateChecker verifies that a freshly opened node connection is safe to use.
//
// The checker runs only when more than one node is registered; a single-node
// deployment has nowhere else to go. probe.WSREP is the Galera implementation.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type StateChecker interface {
	// Check inspects the node behind conn.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - node: Address of the node that was just connected
	//   - conn: The open physical connection
	//
	// Returns:
	//   - error: nil if the node is usable, *types.ReplicationNotSyncedError
	//     if it is lagging, or the query error
	Check(ctx context.Context, node types.NodeAddress, conn sqladapter.Conn) error
}

// DrainChecker reports nodes that operators have asked clients to avoid.
//
// Draining nodes are skipped by node selection unless nothing else is left,
// in which case they remain eligible. topology.Local and topology.NATS
// implement this interface.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type DrainChecker interface {
	// IsDraining reports whether node is in drain mode.
	//
	// Parameters:
	//   - node: The node address to check
	//
	// Returns:
	//   - bool: true if new connections should avoid the node
	IsDraining(node types.NodeAddress) bool
}

// TopologyUpdate describes a change in a node's drain state.
type TopologyUpdate struct {
	// Node is the affected node.
	Node types.NodeAddress

	// DrainMode is true if the node was put into drain mode.
	DrainMode bool

	// Reason is the operator-supplied reason, if any.
	Reason string
}

// TopologyWatcher is a DrainChecker that also publishes drain changes.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type TopologyWatcher interface {
	DrainChecker

	// Watch returns a channel that receives drain updates.
	//
	// The channel is closed when ctx is cancelled or the watcher is closed.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - <-chan TopologyUpdate: Channel of updates
	Watch(ctx context.Context) <-chan TopologyUpdate

	// Close releases the watcher's resources.
	Close() error
}

// PostConnectHook is invoked after every successful physical connect, once
// the node has passed the replication probe.
//
// Hooks run synchronously on the caller's goroutine before the triggering
// operation continues.
//
// Parameters:
//   - ctx: Context of the operation that triggered the connect
//   - node: The node that was connected
type PostConnectHook func(ctx context.Context, node types.NodeAddress)

// TopologyOperator sets node drain states programmatically.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type TopologyOperator interface {
	// SetDrain puts a node into or out of drain mode.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - node: The node to update
	//   - draining: true to enable drain mode, false to disable
	//   - reason: Human-readable reason (only used when draining is true)
	//
	// Returns:
	//   - error: Error if the state could not be stored
	SetDrain(ctx context.Context, node types.NodeAddress, draining bool, reason string) error
}
