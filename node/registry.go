package node

import (
	"strings"

	"github.com/nalgoo/cluster-connection/types"
)

// Registry is an ordered list of unique node addresses with failure counters.
//
// Invariants:
//   - every address appears at most once
//   - the failure map is keyed exactly by the registered addresses
//   - failure counts never decrease
type Registry struct {
	nodes    []types.NodeAddress
	failures map[types.NodeAddress]int
}

// NewRegistry creates a registry pre-populated with the given addresses.
//
// Parameters:
//   - addrs: Node addresses in priority order
//
// Returns:
//   - *Registry: The populated registry
//   - error: DuplicateNodeError or ConfigurationError for invalid input
func NewRegistry(addrs ...string) (*Registry, error) {
	r := &Registry{
		nodes:    make([]types.NodeAddress, 0, len(addrs)),
		failures: make(map[types.NodeAddress]int, len(addrs)),
	}

	for _, addr := range addrs {
		if err := r.Add(addr); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Add appends a node with a failure count of zero.
//
// Parameters:
//   - addr: Node address ("host" or "host:port")
//
// Returns:
//   - error: ConfigurationError for an empty address, DuplicateNodeError if
//     the address is already registered
func (r *Registry) Add(addr string) error {
	a := types.NodeAddress(strings.TrimSpace(addr))
	if a == "" {
		return &types.ConfigurationError{Field: "node", Reason: "address cannot be empty"}
	}

	if _, ok := r.failures[a]; ok {
		return &types.DuplicateNodeError{Node: a}
	}

	r.nodes = append(r.nodes, a)
	r.failures[a] = 0

	return nil
}

// RecordFailure increments the failure count of a node.
//
// Parameters:
//   - addr: The node that failed
//
// Returns:
//   - int: The new failure count
//   - error: ErrUnknownNode if the address is not registered
func (r *Registry) RecordFailure(addr types.NodeAddress) (int, error) {
	count, ok := r.failures[addr]
	if !ok {
		return 0, &types.NodeError{Node: addr, Operation: "record failure", Cause: types.ErrUnknownNode}
	}

	count++
	r.failures[addr] = count

	return count, nil
}

// FailureCount returns the failure count of a node, or zero for unknown nodes.
func (r *Registry) FailureCount(addr types.NodeAddress) int {
	return r.failures[addr]
}

// Contains reports whether the address is registered.
func (r *Registry) Contains(addr types.NodeAddress) bool {
	_, ok := r.failures[addr]
	return ok
}

// Nodes returns a copy of the registered addresses in insertion order.
func (r *Registry) Nodes() []types.NodeAddress {
	out := make([]types.NodeAddress, len(r.nodes))
	copy(out, r.nodes)

	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// At returns the node at index i in insertion order.
func (r *Registry) At(i int) types.NodeAddress {
	return r.nodes[i]
}
