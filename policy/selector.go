package policy

import (
	"github.com/nalgoo/cluster-connection/types"
)

// NodeView is the read-only view of a node registry needed for selection.
//
// *node.Registry satisfies this interface.
type NodeView interface {
	// Len returns the number of nodes.
	Len() int

	// At returns the node at index i in insertion order.
	At(i int) types.NodeAddress

	// FailureCount returns the failure count of a node.
	FailureCount(addr types.NodeAddress) int
}

// SkipFunc reports whether a node should be passed over during selection,
// e.g. because it is being drained for maintenance.
type SkipFunc func(addr types.NodeAddress) bool

// Selector picks the next node to try.
//
// Selection is a pure function of the registry state: it never mutates
// failure counters and never performs I/O.
type Selector interface {
	// Select returns the next node to try.
	//
	// Parameters:
	//   - nodes: The registry to select from
	//   - maxFailedAttempts: Per-node failure cap
	//   - skip: Optional filter; nil means no node is skipped
	//
	// Returns:
	//   - types.NodeAddress: The selected node
	//   - bool: false when every node has reached maxFailedAttempts
	Select(nodes NodeView, maxFailedAttempts int, skip SkipFunc) (types.NodeAddress, bool)

	// Mode returns the selection mode implemented by this selector.
	Mode() types.SelectionMode
}

// Priority prefers the first configured node while it has capacity.
//
// The first node acts as a primary and the rest as standby failovers.
type Priority struct{}

// NewPriority creates a new Priority selector.
//
// Returns:
//   - *Priority: A new priority selector
func NewPriority() *Priority {
	return &Priority{}
}

// Select returns the first node whose failure count is below the cap.
func (p *Priority) Select(nodes NodeView, maxFailedAttempts int, skip SkipFunc) (types.NodeAddress, bool) {
	return withFallback(skip, func(skip SkipFunc) (types.NodeAddress, bool) {
		return firstBelow(nodes, maxFailedAttempts, skip)
	})
}

// Mode returns types.Priority.
func (p *Priority) Mode() types.SelectionMode {
	return types.Priority
}

// RoundRobin spreads attempts evenly over healthy nodes.
//
// Every node is tried at failure level 0 before any node is retried at
// failure level 1, and so on up to the cap.
type RoundRobin struct{}

// NewRoundRobin creates a new RoundRobin selector.
//
// Returns:
//   - *RoundRobin: A new round-robin selector
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select sweeps failure levels breadth-first and returns the first node at
// or below the current level.
func (r *RoundRobin) Select(nodes NodeView, maxFailedAttempts int, skip SkipFunc) (types.NodeAddress, bool) {
	return withFallback(skip, func(skip SkipFunc) (types.NodeAddress, bool) {
		for level := 0; level < maxFailedAttempts; level++ {
			if addr, ok := firstBelow(nodes, level+1, skip); ok {
				return addr, true
			}
		}

		return "", false
	})
}

// Mode returns types.RoundRobin.
func (r *RoundRobin) Mode() types.SelectionMode {
	return types.RoundRobin
}

// NewSelector returns the selector implementing mode.
//
// Parameters:
//   - mode: The selection mode
//
// Returns:
//   - Selector: The matching selector, RoundRobin for unknown modes
func NewSelector(mode types.SelectionMode) Selector {
	if mode == types.Priority {
		return NewPriority()
	}

	return NewRoundRobin()
}

// firstBelow returns the first node, in insertion order, whose failure count
// is strictly below limit and which is not skipped.
func firstBelow(nodes NodeView, limit int, skip SkipFunc) (types.NodeAddress, bool) {
	for i := 0; i < nodes.Len(); i++ {
		addr := nodes.At(i)
		if skip != nil && skip(addr) {
			continue
		}
		if nodes.FailureCount(addr) < limit {
			return addr, true
		}
	}

	return "", false
}

// withFallback runs pick with skip, and again without it when skipping
// leaves no candidate. Drained nodes are still preferable to no node at all.
func withFallback(skip SkipFunc, pick func(SkipFunc) (types.NodeAddress, bool)) (types.NodeAddress, bool) {
	if skip != nil {
		if addr, ok := pick(skip); ok {
			return addr, true
		}
	}

	return pick(nil)
}
