// Package types provides shared types and errors for the cluster connection library.
//
// This is a "leaf" package with no imports from other packages of this module,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"net"
	"strings"
)

// NodeAddress identifies a physical database node as "host" or "host:port".
type NodeAddress string

// String returns the string representation of the NodeAddress.
func (a NodeAddress) String() string {
	return string(a)
}

// Host returns the host part of the address.
//
// IPv6 literals in brackets are returned without the brackets.
func (a NodeAddress) Host() string {
	host, _ := a.split()
	return host
}

// Port returns the port part of the address, or an empty string when the
// address carries no port.
func (a NodeAddress) Port() string {
	_, port := a.split()
	return port
}

// HostPort returns the address in "host:port" form, using defaultPort when
// the address has no explicit port.
//
// Parameters:
//   - defaultPort: Port to use when the address has none (e.g., "3306")
//
// Returns:
//   - string: Dialable "host:port" string
func (a NodeAddress) HostPort(defaultPort string) string {
	host, port := a.split()
	if port == "" {
		port = defaultPort
	}
	if port == "" {
		return host
	}

	return net.JoinHostPort(host, port)
}

func (a NodeAddress) split() (string, string) {
	s := strings.TrimSpace(string(a))
	if host, port, err := net.SplitHostPort(s); err == nil {
		return host, port
	}

	// Bare host, possibly a bracketed IPv6 literal without port.
	return strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"), ""
}

// SelectionMode selects the algorithm used to pick the next node.
type SelectionMode int

const (
	// RoundRobin sweeps every node at failure level 0 before retrying any
	// node at failure level 1, and so on. This is the default.
	RoundRobin SelectionMode = iota
	// Priority always prefers the earliest configured node that still has
	// capacity; the remaining nodes act as standby failovers.
	Priority
)

// String returns the string representation of the SelectionMode.
func (m SelectionMode) String() string {
	switch m {
	case RoundRobin:
		return "round_robin"
	case Priority:
		return "priority"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a known selection mode.
func (m SelectionMode) Valid() bool {
	return m == RoundRobin || m == Priority
}

// ParseSelectionMode converts a textual mode ("round_robin", "roundrobin",
// "rr", "priority") into a SelectionMode.
//
// Parameters:
//   - s: Mode name, case-insensitive
//
// Returns:
//   - SelectionMode: The parsed mode
//   - error: ConfigurationError if the name is unknown
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "round_robin", "roundrobin", "round-robin", "rr":
		return RoundRobin, nil
	case "priority", "failover":
		return Priority, nil
	default:
		return RoundRobin, &ConfigurationError{Field: "selection_mode", Reason: "unknown mode " + s}
	}
}

// ConnectionState is the state of a logical cluster connection.
type ConnectionState int32

const (
	// Disconnected means no physical handle is held.
	Disconnected ConnectionState = iota
	// Connecting means a node has been selected and a physical connect or
	// replication probe is in progress.
	Connecting
	// Connected means a live, verified physical handle is held.
	Connected
)

// String returns the string representation of the ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrorKind tags an error with the action the router should take.
type ErrorKind int

const (
	// KindTransport is a socket, timeout or refused-connection failure.
	// The node is penalised and another node is tried.
	KindTransport ErrorKind = iota
	// KindClusterNotReady means the node answered but is not ready to serve:
	// it is bootstrapping or its replication state is not synchronised.
	KindClusterNotReady
	// KindFatal is caused by the statement or schema, never by node health.
	// It is propagated immediately and never retried.
	KindFatal
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindClusterNotReady:
		return "cluster_not_ready"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this kind trigger failover.
func (k ErrorKind) Retryable() bool {
	return k != KindFatal
}
