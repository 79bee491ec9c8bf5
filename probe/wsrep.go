// Package probe verifies that a freshly opened node connection is safe to use.
//
// For Galera clusters the check reads the wsrep_local_state_comment status
// variable and rejects nodes that are not "Synced" (Donor/Desynced, Joining,
// Joined, Initialized, ...).
package probe

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/types"
)

const (
	// DefaultStateVariable is the Galera local state status variable.
	DefaultStateVariable = "wsrep_local_state_comment"

	// SyncedState is the value reported by a node that is caught up.
	SyncedState = "Synced"
)

// WSREP checks the Galera replication state of a node.
type WSREP struct {
	query    string
	variable string
	synced   string
}

// Option configures a WSREP checker.
type Option func(*WSREP)

// WithStatusQuery overrides the query used to read the status variable.
//
// The query takes the variable name as its only argument and must return
// zero or one row of (name, value), for example
// "SELECT VARIABLE_NAME, VARIABLE_VALUE FROM information_schema.GLOBAL_STATUS WHERE VARIABLE_NAME = ?".
// Without this option the checker runs StatusQuery(variable), which has no
// placeholder.
//
// Parameters:
//   - query: SQL text with one placeholder
//
// Returns:
//   - Option: Configuration option
func WithStatusQuery(query string) Option {
	return func(w *WSREP) {
		w.query = query
	}
}

// WithStateVariable overrides the status variable name.
//
// Parameters:
//   - name: Status variable name
//
// Returns:
//   - Option: Configuration option
func WithStateVariable(name string) Option {
	return func(w *WSREP) {
		w.variable = name
	}
}

// WithSyncedState overrides the value that marks a node as caught up.
//
// Parameters:
//   - state: Synced marker, compared case-insensitively
//
// Returns:
//   - Option: Configuration option
func WithSyncedState(state string) Option {
	return func(w *WSREP) {
		w.synced = state
	}
}

// NewWSREP creates a new replication state checker.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *WSREP: A new checker
func NewWSREP(opts ...Option) *WSREP {
	w := &WSREP{
		variable: DefaultStateVariable,
		synced:   SyncedState,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Check reads the node's replication state.
//
// A node that does not expose the variable is not part of a monitored
// cluster and is accepted.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - addr: The node being checked, used in the error
//   - conn: A live connection to the node
//
// Returns:
//   - error: nil if the node is usable, *types.ReplicationNotSyncedError if
//     it is not synced, or the query error
func (w *WSREP) Check(ctx context.Context, addr types.NodeAddress, conn sqladapter.Conn) error {
	var name, value sql.NullString

	var row *sql.Row
	if w.query == "" {
		row = conn.QueryRowContext(ctx, StatusQuery(w.variable))
	} else {
		row = conn.QueryRowContext(ctx, w.query, w.variable)
	}

	err := row.Scan(&name, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	state := strings.TrimSpace(value.String)
	if state == "" || strings.EqualFold(state, w.synced) {
		return nil
	}

	return &types.ReplicationNotSyncedError{Node: addr, State: state}
}

// StatusQuery returns the SHOW GLOBAL STATUS statement for one variable.
//
// The LIKE clause of SHOW STATUS only accepts a string literal, so the name
// is quoted into the statement instead of being sent as a parameter.
//
// Parameters:
//   - variable: Status variable name
//
// Returns:
//   - string: SQL text without placeholders
func StatusQuery(variable string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)

	return "SHOW GLOBAL STATUS LIKE '" + r.Replace(variable) + "'"
}
