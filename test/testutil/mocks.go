package testutil

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/types"
)

// ErrMockNoRows is returned by MockConn.QueryContext, which cannot build
// *sql.Rows without a real driver.
var ErrMockNoRows = errors.New("testutil: mock connection cannot return rows")

// ConnectorFunc adapts a function to sqladapter.Connector.
//
// The function decides whether the dial succeeds; on success a fresh
// MockConn pinned to the node is returned.
type ConnectorFunc func(ctx context.Context, node types.NodeAddress) error

var _ sqladapter.Connector = ConnectorFunc(nil)

// Connect implements sqladapter.Connector.
func (f ConnectorFunc) Connect(ctx context.Context, node types.NodeAddress) (sqladapter.Conn, error) {
	if err := f(ctx, node); err != nil {
		return nil, err
	}

	return NewMockConn(node), nil
}

// MockConn is an in-memory sqladapter.Conn for tests that do not need rows.
type MockConn struct {
	mu     sync.Mutex
	node   types.NodeAddress
	inTx   bool
	closed bool
	lastID int64
	execs  []string

	// Hooks for custom behavior
	OnExec   func(query string, args ...any) error
	OnCommit func() error
	OnPing   func() error
}

var _ sqladapter.Conn = (*MockConn)(nil)

// NewMockConn creates a mock connection for node.
func NewMockConn(node types.NodeAddress) *MockConn {
	return &MockConn{node: node}
}

// Node returns the node the connection is pinned to.
func (m *MockConn) Node() types.NodeAddress {
	return m.node
}

// ExecContext records the statement and returns a one-row result.
func (m *MockConn) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OnExec != nil {
		if err := m.OnExec(query, args...); err != nil {
			return nil, err
		}
	}

	m.execs = append(m.execs, query)
	m.lastID++

	return mockResult{id: m.lastID}, nil
}

// QueryContext always fails with ErrMockNoRows.
func (m *MockConn) QueryContext(_ context.Context, _ string, _ ...any) (*sql.Rows, error) {
	return nil, ErrMockNoRows
}

// QueryRowContext returns an empty row; Scan on it panics, so callers should
// only use it through code paths that check Err first.
func (m *MockConn) QueryRowContext(_ context.Context, _ string, _ ...any) *sql.Row {
	return &sql.Row{}
}

// BeginTx opens a transaction.
func (m *MockConn) BeginTx(_ context.Context, _ *sql.TxOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inTx {
		return types.ErrTransactionActive
	}
	m.inTx = true

	return nil
}

// Commit closes the open transaction.
func (m *MockConn) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inTx {
		return types.ErrNoTransaction
	}
	m.inTx = false

	if m.OnCommit != nil {
		return m.OnCommit()
	}

	return nil
}

// Rollback closes the open transaction.
func (m *MockConn) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inTx {
		return types.ErrNoTransaction
	}
	m.inTx = false

	return nil
}

// InTransaction reports whether a transaction is open.
func (m *MockConn) InTransaction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.inTx
}

// LastInsertID returns the id of the last ExecContext call.
func (m *MockConn) LastInsertID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastID, nil
}

// PingContext runs the OnPing hook, if any.
func (m *MockConn) PingContext(_ context.Context) error {
	if m.OnPing != nil {
		return m.OnPing()
	}

	return nil
}

// Close marks the connection closed.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// IsClosed reports whether Close was called.
func (m *MockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// Execs returns a copy of the executed statements.
func (m *MockConn) Execs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.execs))
	copy(out, m.execs)

	return out
}

type mockResult struct {
	id int64
}

func (r mockResult) LastInsertId() (int64, error) { return r.id, nil }
func (r mockResult) RowsAffected() (int64, error) { return 1, nil }
