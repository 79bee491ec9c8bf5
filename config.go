package clusterconn

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/nalgoo/cluster-connection/internal/logging"
	"github.com/nalgoo/cluster-connection/internal/metrics"
	"github.com/nalgoo/cluster-connection/policy"
	"github.com/nalgoo/cluster-connection/probe"
	"github.com/nalgoo/cluster-connection/types"
)

// DefaultMaxFailedAttempts is the per-node failure cap used when no option
// overrides it.
const DefaultMaxFailedAttempts = 2

// BackOffFactory creates a fresh back-off policy for one public call.
type BackOffFactory func() backoff.BackOff

// DefaultBackOff retries immediately. The node failure cap, not time, bounds
// the retry loop.
func DefaultBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

// ClientConfig holds configuration for a Connection.
type ClientConfig struct {
	SelectionMode     SelectionMode
	MaxFailedAttempts int
	Classifier        policy.Classifier
	StateChecker      StateChecker
	DrainChecker      DrainChecker
	PostConnectHooks  []PostConnectHook
	TransactionRetry  bool
	BackOff           BackOffFactory
	Metrics           MetricsCollector
	Logger            types.Logger
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults:
//   - SelectionMode: RoundRobin
//   - MaxFailedAttempts: 2
//   - Classifier: policy.NewMySQLClassifier()
//   - StateChecker: probe.NewWSREP() (Galera wsrep_local_state_comment)
//   - TransactionRetry: false (a node failure inside a transaction aborts it)
//   - BackOff: no delay between attempts
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		SelectionMode:     RoundRobin,
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		Classifier:        policy.NewMySQLClassifier(),
		StateChecker:      probe.NewWSREP(),
		BackOff:           DefaultBackOff,
		Metrics:           metrics.NewNopMetrics(),
		Logger:            logging.NewNopLogger(),
	}
}

// Validate checks the configuration for values the connection cannot work with.
//
// Returns:
//   - error: *types.ConfigurationError describing the first invalid field
func (c *ClientConfig) Validate() error {
	if !c.SelectionMode.Valid() {
		return &types.ConfigurationError{Field: "SelectionMode", Reason: "unknown mode " + c.SelectionMode.String()}
	}
	if c.MaxFailedAttempts < 1 {
		return &types.ConfigurationError{Field: "MaxFailedAttempts", Reason: "must be at least 1"}
	}

	return nil
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithSelectionMode sets the node selection algorithm.
//
// Parameters:
//   - mode: RoundRobin (default) or Priority
//
// Returns:
//   - Option: Configuration option
func WithSelectionMode(mode SelectionMode) Option {
	return func(c *ClientConfig) {
		c.SelectionMode = mode
	}
}

// WithMaxFailedAttempts sets how many failures a node may accumulate before
// it is never selected again by this connection.
//
// Parameters:
//   - n: Failure cap, at least 1
//
// Returns:
//   - Option: Configuration option
func WithMaxFailedAttempts(n int) Option {
	return func(c *ClientConfig) {
		c.MaxFailedAttempts = n
	}
}

// WithClassifier sets the error classifier.
//
// Parameters:
//   - classifier: Decides which errors trigger failover
//
// Returns:
//   - Option: Configuration option
func WithClassifier(classifier policy.Classifier) Option {
	return func(c *ClientConfig) {
		c.Classifier = classifier
	}
}

// WithStateChecker sets the post-connect replication probe.
//
// Pass nil to disable the probe entirely.
//
// Parameters:
//   - checker: The probe implementation
//
// Returns:
//   - Option: Configuration option
func WithStateChecker(checker StateChecker) Option {
	return func(c *ClientConfig) {
		c.StateChecker = checker
	}
}

// WithDrainChecker sets the drain source consulted on every node selection.
//
// Parameters:
//   - checker: Usually a topology.Local or topology.NATS watcher
//
// Returns:
//   - Option: Configuration option
func WithDrainChecker(checker DrainChecker) Option {
	return func(c *ClientConfig) {
		c.DrainChecker = checker
	}
}

// WithPostConnectHook appends a hook invoked after every successful connect.
//
// Parameters:
//   - hook: The hook to run
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	clusterconn.WithPostConnectHook(func(ctx context.Context, node clusterconn.NodeAddress) {
//	    log.Info("connected", "node", node)
//	})
func WithPostConnectHook(hook PostConnectHook) Option {
	return func(c *ClientConfig) {
		if hook != nil {
			c.PostConnectHooks = append(c.PostConnectHooks, hook)
		}
	}
}

// WithTransactionRetry controls what happens when a node fails while a
// transaction is open.
//
// When disabled (default) the failure is recorded, the handle is dropped and
// *types.TransactionAbortedError is returned. When enabled the operation is
// re-run on the next node, outside the lost transaction.
//
// Parameters:
//   - enabled: true to retry in-transaction failures on another node
//
// Returns:
//   - Option: Configuration option
func WithTransactionRetry(enabled bool) Option {
	return func(c *ClientConfig) {
		c.TransactionRetry = enabled
	}
}

// WithRetryBackoff sets the delay policy between attempts.
//
// A new policy is created per public call. Returning backoff.Stop from
// NextBackOff ends the call with the last failure.
//
// Parameters:
//   - factory: Creates a back-off policy, e.g. an exponential one
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	clusterconn.WithRetryBackoff(func() backoff.BackOff {
//	    return backoff.NewExponentialBackOff(backoff.WithMaxInterval(time.Second))
//	})
func WithRetryBackoff(factory BackOffFactory) Option {
	return func(c *ClientConfig) {
		c.BackOff = factory
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// Adapters for zap and logrus live under contrib/logging.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithLogger(zaplog.New(logger)),
//	)
func WithLogger(logger types.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}
