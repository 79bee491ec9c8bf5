// Package types provides shared types and error definitions for the cluster
// connection library.
//
// This is a leaf package with zero imports from this module to prevent import
// cycles. All packages can safely import it.
//
// # Types
//
// NodeAddress identifies one database node ("host" or "host:port").
//
// SelectionMode chooses the node selection algorithm:
//
//	const (
//	    RoundRobin SelectionMode = iota
//	    Priority
//	)
//
// ErrorKind tags a failure with the action the router takes:
//
//	const (
//	    KindTransport       ErrorKind = iota // retry on another node
//	    KindClusterNotReady                  // retry on another node
//	    KindFatal                            // propagate, never retry
//	)
//
// # Errors
//
// Sentinel errors are provided for common failure scenarios:
//
//   - ErrNoAvailableNodes: Every node reached the failed-attempts cap
//   - ErrDuplicateNode: A node address was registered twice
//   - ErrConfiguration: Invalid construction input
//   - ErrConnectionClosed: Operation on a closed connection
//   - ErrTransactionAborted: Node failed while a transaction was open
//
// Typed errors (NoAvailableNodesError, ReplicationNotSyncedError, NodeError,
// DriverError, DuplicateNodeError, ConfigurationError, TransactionAbortedError)
// unwrap to the matching sentinel and to their cause.
package types
