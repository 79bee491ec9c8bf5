package topology

import (
	"context"
	"sync"

	clusterconn "github.com/nalgoo/cluster-connection"
	"github.com/nalgoo/cluster-connection/types"
)

// Local provides an in-memory topology watcher and operator.
//
// Unlike NATS, this implementation allows programmatic control of drain
// states, making it useful for unit tests, demos and single-process tools.
// It implements both TopologyWatcher (for observing) and TopologyOperator
// (for controlling drain states).
type Local struct {
	drained map[types.NodeAddress]string
	mu      sync.RWMutex

	updates       chan clusterconn.TopologyUpdate
	done          chan struct{}
	closed        bool
	updatesClosed bool
}

var (
	_ clusterconn.TopologyWatcher  = (*Local)(nil)
	_ clusterconn.TopologyOperator = (*Local)(nil)
)

// NewLocal creates a new in-memory topology watcher/operator.
//
// Returns:
//   - *Local: A new local topology instance
func NewLocal() *Local {
	return &Local{
		drained: make(map[types.NodeAddress]string),
		updates: make(chan clusterconn.TopologyUpdate, 10),
		done:    make(chan struct{}),
	}
}

// Watch returns a channel that receives topology updates.
//
// Updates are emitted when SetDrain changes a node's state. The channel is
// closed when Close() is called or the context is cancelled.
//
// Multiple calls to Watch return the same channel.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - <-chan clusterconn.TopologyUpdate: Channel of topology changes
func (l *Local) Watch(ctx context.Context) <-chan clusterconn.TopologyUpdate {
	go l.waitForClose(ctx)
	return l.updates
}

// SetDrain sets the drain state for a node.
//
// This method emits a TopologyUpdate if the state changes.
//
// Parameters:
//   - ctx: Accepted for interface compliance, not used
//   - node: The node to update
//   - draining: true to enable drain mode, false to disable
//   - reason: Human-readable reason for the drain (only used when draining=true)
//
// Returns:
//   - error: Always nil for local implementation
func (l *Local) SetDrain(_ context.Context, node types.NodeAddress, draining bool, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.updatesClosed {
		return nil
	}

	_, current := l.drained[node]
	if current == draining {
		if draining {
			l.drained[node] = reason
		}

		return nil
	}

	if draining {
		l.drained[node] = reason
	} else {
		delete(l.drained, node)
		reason = ""
	}

	// Emit update (non-blocking)
	select {
	case l.updates <- clusterconn.TopologyUpdate{Node: node, DrainMode: draining, Reason: reason}:
	default:
		// Channel full, skip update
	}

	return nil
}

// IsDraining returns whether the specified node is currently in drain mode.
//
// Parameters:
//   - node: The node to check
//
// Returns:
//   - bool: true if the node is being drained
func (l *Local) IsDraining(node types.NodeAddress) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.drained[node]

	return ok
}

// GetDrainReason returns the drain reason for a node, if any.
//
// Parameters:
//   - node: The node to check
//
// Returns:
//   - string: The drain reason, or empty string if not draining
func (l *Local) GetDrainReason(node types.NodeAddress) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.drained[node]
}

// Close stops the watcher and releases resources.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.done)

	return nil
}

// waitForClose waits for context cancellation or close signal.
func (l *Local) waitForClose(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-l.done:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.updatesClosed {
		l.updatesClosed = true
		close(l.updates)
	}
}
