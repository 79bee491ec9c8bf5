// Package policy provides node selection strategies and error classification
// for cluster connections.
//
// # Node Selection
//
// Selectors decide which node a logical connection tries next. All
// strategies implement the Selector interface:
//
//	type Selector interface {
//	    Select(nodes NodeView, maxFailedAttempts int, skip SkipFunc) (types.NodeAddress, bool)
//	    Mode() types.SelectionMode
//	}
//
// Available strategies:
//
//   - [RoundRobin]: Tries every node once before retrying any node a second
//     time (default)
//   - [Priority]: Always prefers the first configured node while it has
//     capacity, the rest act as standby failovers
//
// Both strategies break ties by insertion order and report exhaustion once
// every node has reached maxFailedAttempts.
//
// Example:
//
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithSelectionMode(types.Priority),
//	    clusterconn.WithMaxFailedAttempts(3),
//	)
//
// # Error Classification
//
// Classifiers tag driver errors as fatal (statement or schema problem,
// propagated immediately) or retryable (transport failure or node not ready,
// triggers failover):
//
//   - [MySQLClassifier]: Understands go-sql-driver/mysql server errors and the
//     Galera "WSREP has not yet prepared node" signal (1047)
//   - [ClassifierFunc]: Adapts a plain function
//
// Anything not recognised as fatal is retryable, favouring availability.
package policy
