// Package node holds the ordered set of database nodes a logical connection
// may use, together with their per-node failure counters.
//
// The registry is pure data: it performs no I/O and knows nothing about
// selection strategies. Insertion order is significant because it is both
// the round-robin sweep order and the tie-break order used by the policy
// package.
//
// A Registry is owned by a single logical connection and is not safe for
// concurrent mutation.
package node
