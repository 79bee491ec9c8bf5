package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nalgoo/cluster-connection/types"
)

// Conn is a physical connection to a single node.
//
// A Conn is owned by one logical connection and is not safe for concurrent use.
type Conn interface {
	// ExecContext executes a query without returning any rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)

	// QueryContext executes a query that returns rows.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRowContext executes a query that returns at most one row.
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row

	// BeginTx starts a transaction on this connection.
	BeginTx(ctx context.Context, opts *sql.TxOptions) error

	// Commit commits the open transaction.
	Commit() error

	// Rollback aborts the open transaction.
	Rollback() error

	// InTransaction reports whether a transaction is open.
	InTransaction() bool

	// LastInsertID returns the insert id of the last ExecContext call.
	LastInsertID() (int64, error)

	// PingContext verifies the connection is alive.
	PingContext(ctx context.Context) error

	// Close closes the physical connection.
	Close() error
}

// Connector opens physical connections to individual nodes.
//
// Implementations MUST be safe for concurrent use from multiple goroutines;
// one connector is typically shared by many logical connections.
type Connector interface {
	// Connect opens a connection to the given node.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - addr: The node to connect to
	//
	// Returns:
	//   - Conn: A live connection pinned to the node
	//   - error: Transport or authentication failure
	Connect(ctx context.Context, addr types.NodeAddress) (Conn, error)
}

// DSNFunc builds a driver data source name for a node.
type DSNFunc func(addr types.NodeAddress) (string, error)

// DBConnector opens nodes through any registered database/sql driver.
type DBConnector struct {
	driverName string
	dsn        DSNFunc
}

// Compile-time assertion that DBConnector implements Connector.
var _ Connector = (*DBConnector)(nil)

// NewDBConnector creates a connector for a registered database/sql driver.
//
// Parameters:
//   - driverName: Registered driver name (e.g., "mysql", "sqlite3")
//   - dsn: Function building the data source name for a node
//
// Returns:
//   - *DBConnector: A new connector
//   - error: ConfigurationError if driverName is empty or dsn is nil
func NewDBConnector(driverName string, dsn DSNFunc) (*DBConnector, error) {
	if driverName == "" {
		return nil, &types.ConfigurationError{Field: "driver", Reason: "driver name cannot be empty"}
	}
	if dsn == nil {
		return nil, &types.ConfigurationError{Field: "dsn", Reason: "DSN builder cannot be nil"}
	}

	return &DBConnector{driverName: driverName, dsn: dsn}, nil
}

// Connect opens a connection to the given node.
func (c *DBConnector) Connect(ctx context.Context, addr types.NodeAddress) (Conn, error) {
	dsn, err := c.dsn(addr)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(c.driverName, dsn)
	if err != nil {
		return nil, err
	}

	return pin(ctx, db)
}

// pin takes exclusive ownership of db and checks out its single physical
// connection.
func pin(ctx context.Context, db *sql.DB) (Conn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()

		return nil, err
	}

	return &connAdapter{db: db, conn: conn}, nil
}

// connAdapter wraps a pinned *sql.Conn to implement the Conn interface.
type connAdapter struct {
	db         *sql.DB
	conn       *sql.Conn
	tx         *sql.Tx
	lastResult sql.Result
}

// ExecContext executes a query without returning any rows.
func (a *connAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		result sql.Result
		err    error
	)
	if a.tx != nil {
		result, err = a.tx.ExecContext(ctx, query, args...)
	} else {
		result, err = a.conn.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}

	a.lastResult = result

	return result, nil
}

// QueryContext executes a query that returns rows.
func (a *connAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if a.tx != nil {
		return a.tx.QueryContext(ctx, query, args...)
	}

	return a.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (a *connAdapter) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if a.tx != nil {
		return a.tx.QueryRowContext(ctx, query, args...)
	}

	return a.conn.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction on this connection.
//
// The transaction outlives ctx: database/sql would otherwise roll it back as
// soon as the caller's per-call context is cancelled.
func (a *connAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) error {
	if a.tx != nil {
		return types.ErrTransactionActive
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := a.conn.BeginTx(context.WithoutCancel(ctx), opts)
	if err != nil {
		return err
	}

	a.tx = tx

	return nil
}

// Commit commits the open transaction.
func (a *connAdapter) Commit() error {
	if a.tx == nil {
		return types.ErrNoTransaction
	}

	tx := a.tx
	a.tx = nil

	return tx.Commit()
}

// Rollback aborts the open transaction.
func (a *connAdapter) Rollback() error {
	if a.tx == nil {
		return types.ErrNoTransaction
	}

	tx := a.tx
	a.tx = nil

	return tx.Rollback()
}

// InTransaction reports whether a transaction is open.
func (a *connAdapter) InTransaction() bool {
	return a.tx != nil
}

// LastInsertID returns the insert id of the last ExecContext call.
func (a *connAdapter) LastInsertID() (int64, error) {
	if a.lastResult == nil {
		return 0, nil
	}

	return a.lastResult.LastInsertId()
}

// PingContext verifies the connection is alive.
func (a *connAdapter) PingContext(ctx context.Context) error {
	return a.conn.PingContext(ctx)
}

// Close rolls back any open transaction and closes the connection.
func (a *connAdapter) Close() error {
	var errs []error
	if a.tx != nil {
		if err := a.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		a.tx = nil
	}

	if err := a.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
