package clusterconn

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/internal/logging"
	"github.com/nalgoo/cluster-connection/internal/metrics"
	"github.com/nalgoo/cluster-connection/node"
	"github.com/nalgoo/cluster-connection/policy"
	"github.com/nalgoo/cluster-connection/types"
)

// Operation names used in logs, metrics and NodeError values.
const (
	opConnect     = "connect"
	opQuery       = "query"
	opQueryRow    = "query_row"
	opExec        = "exec"
	opBegin       = "begin"
	opCommit      = "commit"
	opRollback    = "rollback"
	opLastInsert  = "last_insert_id"
	opPing        = "ping"
	opQuote       = "quote"
	opWrappedConn = "wrapped_conn"
	opPlatform    = "platform"
)

// platformQuery returns the server version string.
const platformQuery = "SELECT VERSION()"

// Connection is one logical database connection backed by a cluster of nodes.
//
// At most one physical connection is open at a time. It is opened lazily on
// the first operation, against a node chosen by the configured selection
// mode. When an operation fails with a retryable error the node is charged
// one failure, the handle is dropped and the operation is re-run on the next
// eligible node. Once every node has reached MaxFailedAttempts the call
// returns *types.NoAvailableNodesError.
//
// Failure counts live for the lifetime of the Connection and are never reset.
//
// A Connection is not safe for concurrent use. Like a single database
// session it must be owned by one goroutine at a time.
type Connection struct {
	id        string
	registry  *node.Registry
	connector sqladapter.Connector
	selector  policy.Selector
	config    *ClientConfig
	log       types.Logger

	state    types.ConnectionState
	conn     sqladapter.Conn
	selected types.NodeAddress
	lastErr  error
	closed   bool
}

// New creates a new Connection.
//
// No physical connection is opened; the first operation (or Connect) does
// that. Nodes may also be appended later with AddNode.
//
// Parameters:
//   - nodes: Node addresses ("host" or "host:port") in priority order
//   - connector: Opens a physical connection to a single node
//   - opts: Optional configuration options
//
// Returns:
//   - *Connection: A new connection
//   - error: ErrNilConnector, *types.ConfigurationError or
//     *types.DuplicateNodeError
func New(nodes []string, connector sqladapter.Connector, opts ...Option) (*Connection, error) {
	if connector == nil {
		return nil, types.ErrNilConnector
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	// Ensure metrics is never nil
	if config.Metrics == nil {
		config.Metrics = metrics.NewNopMetrics()
	}

	// Ensure logger is never nil
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	if config.Classifier == nil {
		config.Classifier = policy.NewMySQLClassifier()
	}

	if config.BackOff == nil {
		config.BackOff = DefaultBackOff
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry, err := node.NewRegistry(nodes...)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Connection{
		id:        id.String(),
		registry:  registry,
		connector: connector,
		selector:  policy.NewSelector(config.SelectionMode),
		config:    config,
		log:       logging.With(config.Logger, "connection", id.String()),
		state:     types.Disconnected,
	}, nil
}

// AddNode appends a node to the end of the priority order.
//
// Parameters:
//   - addr: Node address ("host" or "host:port")
//
// Returns:
//   - error: *types.DuplicateNodeError or *types.ConfigurationError
func (c *Connection) AddNode(addr string) error {
	return c.registry.Add(addr)
}

// ID returns the unique identifier of this logical connection.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current connection state.
func (c *Connection) State() types.ConnectionState {
	return c.state
}

// SelectedNode returns the node the physical connection is open against.
//
// Returns:
//   - types.NodeAddress: The node address
//   - bool: false when no node is selected
func (c *Connection) SelectedNode() (types.NodeAddress, bool) {
	return c.selected, c.selected != ""
}

// FailureCount returns how many failures have been charged to a node.
func (c *Connection) FailureCount(addr string) int {
	return c.registry.FailureCount(types.NodeAddress(strings.TrimSpace(addr)))
}

// Nodes returns the registered nodes in priority order.
func (c *Connection) Nodes() []types.NodeAddress {
	return c.registry.Nodes()
}

// LastError returns the most recent failure charged to a node, or nil.
func (c *Connection) LastError() error {
	return c.lastErr
}

// Connect opens a physical connection if none is open.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - bool: true if a new physical connection was opened
//   - error: *types.NoAvailableNodesError if every node is exhausted
func (c *Connection) Connect(ctx context.Context) (bool, error) {
	if c.closed {
		return false, types.ErrConnectionClosed
	}
	if c.state == types.Connected {
		return false, nil
	}

	if err := c.connect(ctx, c.config.BackOff()); err != nil {
		return false, err
	}

	return true, nil
}

// ExecuteQuery runs a query that returns rows.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL query
//   - args: Query arguments
//
// Returns:
//   - *sql.Rows: Result rows; the caller must close them
//   - error: Fatal driver error, *types.NoAvailableNodesError or
//     *types.TransactionAbortedError
func (c *Connection) ExecuteQuery(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := c.run(ctx, opQuery, func(conn sqladapter.Conn) error {
		var err error
		rows, err = conn.QueryContext(ctx, query, args...)

		return err
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// QueryRow runs a query expected to return at most one row.
//
// Unlike sql.DB.QueryRow the query error is returned directly so that it
// takes part in failover.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL query
//   - args: Query arguments
//
// Returns:
//   - *sql.Row: The row to scan
//   - error: Same as ExecuteQuery
func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	var row *sql.Row
	err := c.run(ctx, opQueryRow, func(conn sqladapter.Conn) error {
		row = conn.QueryRowContext(ctx, query, args...)

		return row.Err()
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

// Exec runs a statement that does not return rows.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL statement
//   - args: Statement arguments
//
// Returns:
//   - sql.Result: The statement result
//   - error: Same as ExecuteQuery
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := c.run(ctx, opExec, func(conn sqladapter.Conn) error {
		var err error
		result, err = conn.ExecContext(ctx, query, args...)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExecuteUpdate runs a statement and returns the number of affected rows.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL statement
//   - args: Statement arguments
//
// Returns:
//   - int64: Affected rows
//   - error: Same as ExecuteQuery
func (c *Connection) ExecuteUpdate(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := c.run(ctx, opExec, func(conn sqladapter.Conn) error {
		result, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()

		return err
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// BeginTransaction opens a transaction on the physical connection.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	return c.run(ctx, opBegin, func(conn sqladapter.Conn) error {
		return conn.BeginTx(ctx, nil)
	})
}

// Commit commits the open transaction.
//
// Returns:
//   - error: ErrNoTransaction if no transaction is open,
//     *types.TransactionAbortedError if the node failed
func (c *Connection) Commit(ctx context.Context) error {
	if !c.inTransaction() {
		return types.ErrNoTransaction
	}

	return c.run(ctx, opCommit, func(conn sqladapter.Conn) error {
		return conn.Commit()
	})
}

// RollBack rolls back the open transaction.
//
// Returns:
//   - error: ErrNoTransaction if no transaction is open,
//     *types.TransactionAbortedError if the node failed
func (c *Connection) RollBack(ctx context.Context) error {
	if !c.inTransaction() {
		return types.ErrNoTransaction
	}

	return c.run(ctx, opRollback, func(conn sqladapter.Conn) error {
		return conn.Rollback()
	})
}

// LastInsertID returns the auto-increment ID produced by the last Exec on
// the current physical connection.
func (c *Connection) LastInsertID(ctx context.Context) (int64, error) {
	var id int64
	err := c.run(ctx, opLastInsert, func(conn sqladapter.Conn) error {
		var err error
		id, err = conn.LastInsertID()

		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Ping verifies the physical connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.run(ctx, opPing, func(conn sqladapter.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Quote returns s as a single-quoted SQL string literal.
//
// The literal is escaped for the default MySQL/MariaDB sql_mode; prefer
// placeholders wherever the driver supports them. Quote connects like any
// other operation.
func (c *Connection) Quote(ctx context.Context, s string) (string, error) {
	var quoted string
	err := c.run(ctx, opQuote, func(_ sqladapter.Conn) error {
		quoted = quoteString(s)

		return nil
	})
	if err != nil {
		return "", err
	}

	return quoted, nil
}

// WrappedConn returns the current physical connection, connecting first if
// needed. The handle is owned by the Connection and must not be closed.
func (c *Connection) WrappedConn(ctx context.Context) (sqladapter.Conn, error) {
	var wrapped sqladapter.Conn
	err := c.run(ctx, opWrappedConn, func(conn sqladapter.Conn) error {
		wrapped = conn

		return nil
	})
	if err != nil {
		return nil, err
	}

	return wrapped, nil
}

// Platform returns the server version string of the selected node.
func (c *Connection) Platform(ctx context.Context) (string, error) {
	var version string
	err := c.run(ctx, opPlatform, func(conn sqladapter.Conn) error {
		return conn.QueryRowContext(ctx, platformQuery).Scan(&version)
	})
	if err != nil {
		return "", err
	}

	return version, nil
}

// Close closes the physical connection. Subsequent calls return
// ErrConnectionClosed.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.conn = nil
	c.selected = ""
	c.state = types.Disconnected

	return err
}

func (c *Connection) inTransaction() bool {
	return c.state == types.Connected && c.conn != nil && c.conn.InTransaction()
}

// run executes fn against the physical connection, failing over to the next
// node on retryable errors until fn succeeds, a fatal error occurs or every
// node is exhausted.
func (c *Connection) run(ctx context.Context, op string, fn func(sqladapter.Conn) error) error {
	if c.closed {
		return types.ErrConnectionClosed
	}

	b := c.config.BackOff()
	for {
		if c.state != types.Connected {
			if err := c.connect(ctx, b); err != nil {
				return err
			}
		}

		addr := c.selected
		inTx := c.conn.InTransaction()

		c.config.Metrics.IncOperationTotal(addr, op)
		start := time.Now()
		err := fn(c.conn)
		c.config.Metrics.ObserveOperationDuration(addr, op, time.Since(start).Seconds())
		if err == nil {
			return nil
		}

		// The caller gave up; the node is not charged, but the handle may
		// have been left mid-command.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !inTx {
				c.drop()
			}
			if errors.Is(err, ctxErr) {
				return err
			}

			return errors.Join(ctxErr, err)
		}

		kind := c.config.Classifier.Classify(err)
		c.config.Metrics.IncOperationError(addr, op, kind)
		if !kind.Retryable() {
			return err
		}

		c.fail(addr, op, kind, err)

		if inTx && !c.config.TransactionRetry {
			return &types.TransactionAbortedError{Node: addr, Cause: err}
		}

		c.config.Metrics.IncOperationRetry(op)
		c.log.Warn("retrying operation on another node",
			"operation", op,
			"failed_node", addr.String(),
		)

		if werr := c.wait(ctx, b); werr != nil {
			return errors.Join(err, werr)
		}
	}
}

// connect selects nodes until a physical connection is open and passes the
// replication probe, or until the registry is exhausted.
func (c *Connection) connect(ctx context.Context, b backoff.BackOff) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		addr, ok := c.selector.Select(c.registry, c.config.MaxFailedAttempts, c.skipFunc())
		if !ok {
			c.config.Metrics.IncExhausted()
			exhausted := &types.NoAvailableNodesError{
				Nodes:             c.registry.Len(),
				MaxFailedAttempts: c.config.MaxFailedAttempts,
				LastErr:           c.lastErr,
			}
			c.log.Error("no available nodes",
				"nodes", c.registry.Len(),
				"error", exhausted.Error(),
			)

			return exhausted
		}

		c.state = types.Connecting
		c.selected = addr
		c.log.Debug("node selected",
			"node", addr.String(),
			"mode", c.selector.Mode().String(),
		)

		err := c.open(ctx, addr)
		if err == nil {
			c.state = types.Connected
			c.log.Info("connected",
				"node", addr.String(),
			)
			for _, hook := range c.config.PostConnectHooks {
				hook(ctx, addr)
			}

			return nil
		}

		c.state = types.Disconnected
		c.selected = ""

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Every connect or state check failure moves on to the next node. A server
		// error the classifier would call fatal for a statement (a status
		// query rejected by the parser, a missing schema) is charged as a
		// transport failure.
		kind := c.config.Classifier.Classify(err)
		if !kind.Retryable() {
			kind = types.KindTransport
		}
		c.config.Metrics.IncConnectError(addr, kind)

		c.fail(addr, opConnect, kind, err)

		if werr := c.wait(ctx, b); werr != nil {
			return errors.Join(err, werr)
		}
	}
}

// open dials addr and, when more than one node is registered, runs the
// replication probe. On success the handle is stored on c.
func (c *Connection) open(ctx context.Context, addr types.NodeAddress) error {
	c.config.Metrics.IncConnectTotal(addr)
	start := time.Now()
	defer func() {
		c.config.Metrics.ObserveConnectDuration(addr, time.Since(start).Seconds())
	}()

	conn, err := c.connector.Connect(ctx, addr)
	if err != nil {
		return err
	}

	if c.config.StateChecker != nil && c.registry.Len() > 1 {
		if err := c.config.StateChecker.Check(ctx, addr, conn); err != nil {
			var notSynced *types.ReplicationNotSyncedError
			if errors.As(err, &notSynced) {
				c.config.Metrics.IncReplicationNotSynced(addr)
				c.log.Warn("node not synced",
					"node", addr.String(),
					"state", notSynced.State,
				)
			}
			_ = conn.Close()

			return err
		}
	}

	c.conn = conn

	return nil
}

// fail charges one failure to addr and drops the physical connection.
func (c *Connection) fail(addr types.NodeAddress, op string, kind types.ErrorKind, err error) {
	count, recErr := c.registry.RecordFailure(addr)
	if recErr == nil {
		c.config.Metrics.IncNodeFailure(addr)
		c.config.Metrics.SetNodeFailureCount(addr, count)
	}

	c.lastErr = &types.NodeError{Node: addr, Operation: op, Cause: err}
	c.drop()

	c.log.Warn("node failed",
		"node", addr.String(),
		"operation", op,
		"kind", kind.String(),
		"failures", count,
		"max_failed_attempts", c.config.MaxFailedAttempts,
		"error", err.Error(),
	)
}

// drop closes the physical connection and resets the per-handle state.
func (c *Connection) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.selected = ""
	c.state = types.Disconnected
}

// wait sleeps for the next back-off interval.
func (c *Connection) wait(ctx context.Context, b backoff.BackOff) error {
	d := b.NextBackOff()
	if d == backoff.Stop {
		return errRetryStopped
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Connection) skipFunc() policy.SkipFunc {
	if c.config.DrainChecker == nil {
		return nil
	}

	return c.config.DrainChecker.IsDraining
}

var errRetryStopped = errors.New("clusterconn: retry back-off stopped")

// quoteString escapes s the way mysql_real_escape_string does for a
// connection without NO_BACKSLASH_ESCAPES.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\032':
			b.WriteString(`\Z`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('\'')

	return b.String()
}
