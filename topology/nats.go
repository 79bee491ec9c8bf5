package topology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	clusterconn "github.com/nalgoo/cluster-connection"
	"github.com/nalgoo/cluster-connection/types"
)

// ErrNilKeyValue is returned when a nil KeyValue store is passed to NewNATS.
var ErrNilKeyValue = errors.New("clusterconn/topology: KeyValue store is nil")

// NATS monitors a NATS KV bucket for node drain configuration.
//
// It watches a configurable key and emits TopologyUpdate events when the
// drain status of any node changes. Connections consult IsDraining on every
// node selection, so a node added to the drain list stops receiving new
// physical connections while connections already open on it are left alone.
//
// Watch() should be called once per instance. Subsequent calls return the
// same channel. The channel is closed when Close() is called or the context
// is cancelled.
type NATS struct {
	kv     jetstream.KeyValue
	config WatcherConfig

	// Current drain state
	drained     map[types.NodeAddress]struct{}
	drainReason string
	mu          sync.RWMutex

	// Lifecycle
	updates      chan clusterconn.TopologyUpdate
	done         chan struct{}
	closed       bool
	watchStarted bool
	closeOnce    sync.Once
}

var (
	_ clusterconn.TopologyWatcher  = (*NATS)(nil)
	_ clusterconn.TopologyOperator = (*NATS)(nil)
)

// NewNATS creates a new NATS KV topology watcher.
//
// The watcher will begin monitoring the KV bucket for drain configuration
// when Watch() is called.
//
// Parameters:
//   - kv: A NATS JetStream KeyValue store
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new watcher instance
//   - error: ErrNilKeyValue if kv is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "galera-config")
//
//	watcher, _ := topology.NewNATS(kv,
//	    topology.WithKey("galera.prod.drain"),
//	    topology.WithPollInterval(10*time.Second),
//	)
//	watcher.Watch(ctx)
func NewNATS(kv jetstream.KeyValue, opts ...WatcherOption) (*NATS, error) {
	if kv == nil {
		return nil, ErrNilKeyValue
	}

	config := DefaultWatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATS{
		kv:      kv,
		config:  config,
		drained: make(map[types.NodeAddress]struct{}),
		updates: make(chan clusterconn.TopologyUpdate, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch returns a channel that receives topology updates.
//
// The watcher spawns a background goroutine that monitors the NATS KV key.
// When the drain configuration changes, it emits one TopologyUpdate per
// affected node.
//
// The channel is closed when Close() is called or the context is cancelled.
// Multiple calls to Watch return the same channel; only the first call's
// context controls the watch lifecycle.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan clusterconn.TopologyUpdate: Channel of topology changes
func (n *NATS) Watch(ctx context.Context) <-chan clusterconn.TopologyUpdate {
	n.mu.Lock()
	if n.watchStarted {
		n.mu.Unlock()

		return n.updates
	}
	n.watchStarted = true
	n.mu.Unlock()

	go n.watchLoop(ctx)

	return n.updates
}

// Close stops the watcher and releases resources.
//
// This method is safe to call multiple times.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	n.closed = true
	close(n.done)

	return nil
}

// IsDraining returns whether the specified node is currently in drain mode.
//
// This provides a synchronous way to check drain status without waiting
// for channel updates.
//
// Parameters:
//   - node: The node to check
//
// Returns:
//   - bool: true if the node is being drained
func (n *NATS) IsDraining(node types.NodeAddress) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	_, ok := n.drained[node]

	return ok
}

// Drained returns the nodes currently in drain mode, sorted.
func (n *NATS) Drained() []types.NodeAddress {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]types.NodeAddress, 0, len(n.drained))
	for node := range n.drained {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Config returns the watcher configuration.
//
// Returns:
//   - WatcherConfig: The current watcher configuration
func (n *NATS) Config() WatcherConfig {
	return n.config
}

// GetDrainReason returns the current drain reason, if any.
//
// This returns the cached reason from the last processed KV entry.
// It does not perform a live KV fetch.
//
// Returns:
//   - string: The drain reason, or empty if not draining
func (n *NATS) GetDrainReason() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.drainReason
}

// SetDrain adds or removes a node in the KV drain configuration.
//
// The update uses the entry revision so that concurrent operators do not
// overwrite each other; on a revision conflict the read-modify-write is
// retried. Every watcher on the key, including this one, observes the change
// through its watch.
//
// Parameters:
//   - ctx: Context for the KV operations
//   - node: The node to update
//   - draining: true to add the node, false to remove it
//   - reason: Stored as the configuration reason when draining is true
//
// Returns:
//   - error: KV or encoding error
func (n *NATS) SetDrain(ctx context.Context, node types.NodeAddress, draining bool, reason string) error {
	for {
		var (
			config   DrainConfig
			revision uint64
		)

		entry, err := n.kv.Get(ctx, n.config.Key)
		switch {
		case err == nil:
			revision = entry.Revision()
			if len(entry.Value()) > 0 {
				if err := json.Unmarshal(entry.Value(), &config); err != nil {
					return fmt.Errorf("clusterconn/topology: decode drain config: %w", err)
				}
			}
		case errors.Is(err, jetstream.ErrKeyNotFound):
		default:
			return err
		}

		if !applyDrain(&config, node, draining, reason) {
			return nil
		}

		data, err := json.Marshal(config)
		if err != nil {
			return err
		}

		if revision == 0 {
			_, err = n.kv.Create(ctx, n.config.Key, data)
		} else {
			_, err = n.kv.Update(ctx, n.config.Key, data, revision)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return err
		}
		// Another operator won the race; re-read and try again.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}

// applyDrain edits config in place and reports whether anything changed.
func applyDrain(config *DrainConfig, node types.NodeAddress, draining bool, reason string) bool {
	if draining {
		if config.ContainsNode(node) {
			if reason == "" || config.Reason == reason {
				return false
			}
			config.Reason = reason

			return true
		}
		config.Drain = append(config.Drain, node)
		if reason != "" {
			config.Reason = reason
		}

		return true
	}

	kept := config.Drain[:0]
	for _, n := range config.Drain {
		if n != node {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(config.Drain) {
		return false
	}
	config.Drain = kept
	if len(kept) == 0 {
		config.Reason = ""
	}

	return true
}

// watchLoop is the main watch loop that monitors the NATS KV key.
func (n *NATS) watchLoop(ctx context.Context) {
	defer n.closeOnce.Do(func() { close(n.updates) })

	// Initial fetch
	n.fetchAndEmit(ctx)

	// Start watching
	watcher, err := n.kv.Watch(ctx, n.config.Key)
	if err != nil {
		// Fall back to polling if watch fails
		n.pollLoop(ctx)
		return
	}
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				// Watcher channel closed, fall back to polling
				n.pollLoop(ctx)
				return
			}
			if entry == nil {
				// Initial nil entry, skip
				continue
			}
			n.processEntry(entry)
		}
	}
}

// pollLoop is a fallback polling loop when watch fails.
func (n *NATS) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			n.fetchAndEmit(ctx)
		}
	}
}

// fetchAndEmit fetches the current KV value and emits updates if changed.
func (n *NATS) fetchAndEmit(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.InitialFetchTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		n.apply(nil, "")
		return
	}
	if err != nil {
		// Transient KV error; keep the last known drain set.
		return
	}

	n.processEntry(entry)
}

// processEntry parses a KV entry and emits topology updates.
func (n *NATS) processEntry(entry jetstream.KeyValueEntry) {
	// Handle deletion
	if entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge {
		n.apply(nil, "")
		return
	}

	var config DrainConfig
	if err := json.Unmarshal(entry.Value(), &config); err != nil {
		// Invalid JSON - treat as no drain
		n.apply(nil, "")
		return
	}

	n.apply(config.Drain, config.Reason)
}

// apply replaces the drained set and emits an update for every node whose
// state changed.
func (n *NATS) apply(drain []types.NodeAddress, reason string) {
	next := make(map[types.NodeAddress]struct{}, len(drain))
	for _, node := range drain {
		next[node] = struct{}{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var changes []clusterconn.TopologyUpdate
	for node := range next {
		if _, ok := n.drained[node]; !ok {
			changes = append(changes, clusterconn.TopologyUpdate{Node: node, DrainMode: true, Reason: reason})
		}
	}
	for node := range n.drained {
		if _, ok := next[node]; !ok {
			changes = append(changes, clusterconn.TopologyUpdate{Node: node, DrainMode: false})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Node < changes[j].Node })

	n.drained = next
	n.drainReason = reason
	if len(next) == 0 {
		n.drainReason = ""
	}

	for _, update := range changes {
		// Emit update (non-blocking)
		select {
		case n.updates <- update:
		default:
			// Channel full, skip update (IsDraining stays authoritative)
		}
	}
}
