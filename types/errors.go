package types

import (
	"errors"
	"strconv"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrNoAvailableNodes indicates every configured node has reached the
	// failed-attempts cap and there is nothing left to try.
	ErrNoAvailableNodes = errors.New("clusterconn: no available nodes left to connect to")

	// ErrDuplicateNode indicates a node address was registered twice.
	ErrDuplicateNode = errors.New("clusterconn: duplicate node address")

	// ErrUnknownNode indicates an address that is not part of the registry.
	ErrUnknownNode = errors.New("clusterconn: unknown node address")

	// ErrConfiguration indicates invalid construction input.
	ErrConfiguration = errors.New("clusterconn: invalid configuration")

	// ErrConnectionClosed indicates an operation was attempted on a closed connection.
	ErrConnectionClosed = errors.New("clusterconn: connection is closed")

	// ErrNilConnector indicates that a nil connector was provided.
	ErrNilConnector = errors.New("clusterconn: connector cannot be nil")

	// ErrNoTransaction indicates Commit or RollBack was called without an
	// open transaction.
	ErrNoTransaction = errors.New("clusterconn: no active transaction")

	// ErrTransactionActive indicates BeginTransaction was called while a
	// transaction is already open on the physical handle.
	ErrTransactionActive = errors.New("clusterconn: transaction already active")

	// ErrTransactionAborted indicates the node failed while a transaction
	// was open; the transaction state is lost and the call was not retried.
	ErrTransactionAborted = errors.New("clusterconn: transaction aborted by node failure")
)

// NoAvailableNodesError is returned when every node is exhausted.
//
// The message embeds the last underlying error so the root cause is visible
// without unwrapping.
type NoAvailableNodesError struct {
	// Nodes is the number of configured nodes.
	Nodes int

	// MaxFailedAttempts is the per-node failure cap that was reached.
	MaxFailedAttempts int

	// LastErr is the most recent underlying failure, or nil if no attempt
	// was ever made.
	LastErr error
}

// Error implements the error interface.
func (e *NoAvailableNodesError) Error() string {
	msg := ErrNoAvailableNodes.Error() +
		" (nodes=" + strconv.Itoa(e.Nodes) +
		", max_failed_attempts=" + strconv.Itoa(e.MaxFailedAttempts) + ")"
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}

	return msg
}

// Unwrap returns the sentinel and the last underlying error.
func (e *NoAvailableNodesError) Unwrap() []error {
	if e.LastErr == nil {
		return []error{ErrNoAvailableNodes}
	}

	return []error{ErrNoAvailableNodes, e.LastErr}
}

// ReplicationNotSyncedError reports a node whose replication state is not
// caught up with the cluster.
type ReplicationNotSyncedError struct {
	// Node is the address of the node that was probed.
	Node NodeAddress

	// State is the reported state, e.g. "Donor/Desynced" or "Joining".
	State string
}

// Error implements the error interface.
func (e *ReplicationNotSyncedError) Error() string {
	return `clusterconn: local state of node ` + e.Node.String() + ` is not "Synced" (state: ` + e.State + `)`
}

// NodeError wraps an error from a specific node.
type NodeError struct {
	// Node identifies which node the error came from.
	Node NodeAddress

	// Operation describes what operation failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return "clusterconn: node " + e.Node.String() + " " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// DriverError is the tagged error model a single-node driver may return to
// state explicitly how the router should treat a failure.
type DriverError struct {
	// Kind is the classification of the failure.
	Kind ErrorKind

	// Code is the optional server error number.
	Code int

	// Message is the human-readable description.
	Message string

	// Cause is the optional underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	msg := "clusterconn: " + e.Kind.String() + " error"
	if e.Code != 0 {
		msg += " " + strconv.Itoa(e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DriverError) Unwrap() error {
	return e.Cause
}

// DuplicateNodeError reports an address that is already registered.
type DuplicateNodeError struct {
	// Node is the rejected address.
	Node NodeAddress
}

// Error implements the error interface.
func (e *DuplicateNodeError) Error() string {
	return ErrDuplicateNode.Error() + ": " + e.Node.String()
}

// Unwrap returns ErrDuplicateNode.
func (e *DuplicateNodeError) Unwrap() error {
	return ErrDuplicateNode
}

// ConfigurationError reports invalid construction input.
type ConfigurationError struct {
	// Field names the offending option or parameter.
	Field string

	// Reason explains what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return ErrConfiguration.Error() + ": " + e.Field + ": " + e.Reason
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// TransactionAbortedError is returned when a retryable failure happens while
// a transaction is open and transaction retry is disabled.
type TransactionAbortedError struct {
	// Node is the node that held the transaction.
	Node NodeAddress

	// Cause is the underlying failure.
	Cause error
}

// Error implements the error interface.
func (e *TransactionAbortedError) Error() string {
	return ErrTransactionAborted.Error() + " on node " + e.Node.String() + ": " + e.Cause.Error()
}

// Unwrap returns the sentinel and the underlying failure.
func (e *TransactionAbortedError) Unwrap() []error {
	return []error{ErrTransactionAborted, e.Cause}
}
