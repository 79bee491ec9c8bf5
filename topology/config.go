package topology

import (
	"time"

	"github.com/nalgoo/cluster-connection/types"
)

// DefaultKey is the NATS KV key holding the drain configuration.
const DefaultKey = "clusterconn.topology.drain"

// DrainConfig represents the drain mode configuration stored in NATS KV.
//
// This is the JSON structure that operations teams PUT to the KV store
// to signal node maintenance.
type DrainConfig struct {
	// Drain lists the node addresses currently being drained, exactly as
	// they are registered with the connections ("db2:3306").
	Drain []types.NodeAddress `json:"drain"`

	// Reason is a human-readable explanation for the drain.
	// Example: "OS Patching", "SST donor", "Upgrade to 11.4"
	Reason string `json:"reason,omitempty"`
}

// ContainsNode returns true if the given node is in the drain list.
//
// Parameters:
//   - node: The node address to check
//
// Returns:
//   - bool: true if the node is being drained
func (d *DrainConfig) ContainsNode(node types.NodeAddress) bool {
	for _, n := range d.Drain {
		if n == node {
			return true
		}
	}

	return false
}

// WatcherConfig holds configuration for topology watchers.
type WatcherConfig struct {
	// Key is the NATS KV key to watch for drain configuration.
	// Default: "clusterconn.topology.drain"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// InitialFetchTimeout is the timeout for the initial KV fetch.
	// Default: 10 seconds
	InitialFetchTimeout time.Duration
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
//
// Returns:
//   - WatcherConfig: Default configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Key:                 DefaultKey,
		PollInterval:        5 * time.Second,
		InitialFetchTimeout: 10 * time.Second,
	}
}

// WatcherOption configures a topology watcher.
type WatcherOption func(*WatcherConfig)

// WithKey sets the NATS KV key to watch.
//
// Parameters:
//   - key: The key name (e.g., "galera.prod.drain")
//
// Returns:
//   - WatcherOption: Configuration option
func WithKey(key string) WatcherOption {
	return func(c *WatcherConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// If the NATS watch fails or disconnects, the watcher falls back to
// polling at this interval.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithPollInterval(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.PollInterval = d
	}
}

// WithInitialFetchTimeout sets the timeout for the initial KV fetch.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithInitialFetchTimeout(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.InitialFetchTimeout = d
	}
}
