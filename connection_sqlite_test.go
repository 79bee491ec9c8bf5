package clusterconn

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/policy"
	"github.com/nalgoo/cluster-connection/probe"
	"github.com/nalgoo/cluster-connection/types"
)

// sqliteCluster maps node hosts to SQLite files. Nodes named "down*" point
// at a read-only open of a file that does not exist, so connecting fails.
type sqliteCluster struct {
	dir string
}

func newSQLiteCluster(t *testing.T) *sqliteCluster {
	t.Helper()

	return &sqliteCluster{dir: t.TempDir()}
}

func (c *sqliteCluster) path(host string) string {
	return filepath.Join(c.dir, host+".db")
}

func (c *sqliteCluster) connector(t *testing.T) *sqladapter.DBConnector {
	t.Helper()

	connector, err := sqladapter.NewDBConnector("sqlite3", func(addr types.NodeAddress) (string, error) {
		mode := "rwc"
		if strings.HasPrefix(addr.Host(), "down") {
			mode = "ro"
		}

		return "file:" + c.path(addr.Host()) + "?mode=" + mode, nil
	})
	require.NoError(t, err)

	return connector
}

// seed creates the schema on a node, including the emulated status table.
func (c *sqliteCluster) seed(t *testing.T, host, wsrepState string) {
	t.Helper()

	db, err := sql.Open("sqlite3", c.path(host))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE global_status (name TEXT PRIMARY KEY, value TEXT)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO global_status (name, value) VALUES ('wsrep_local_state_comment', ?)", wsrepState)
	require.NoError(t, err)
}

func sqliteProbe() StateChecker {
	return probe.NewWSREP(probe.WithStatusQuery("SELECT name, value FROM global_status WHERE name = ?"))
}

func TestSQLiteFailoverToReachableNode(t *testing.T) {
	cluster := newSQLiteCluster(t)
	cluster.seed(t, "db2", "Synced")

	conn, err := New([]string{"down1", "db2"}, cluster.connector(t),
		WithSelectionMode(Priority),
		WithMaxFailedAttempts(1),
		WithStateChecker(sqliteProbe()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx := t.Context()
	_, err = conn.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "alice")
	require.NoError(t, err)

	id, err := conn.LastInsertID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	row, err := conn.QueryRow(ctx, "SELECT name FROM users WHERE id = ?", id)
	require.NoError(t, err)
	var name string
	require.NoError(t, row.Scan(&name))
	require.Equal(t, "alice", name)

	selected, ok := conn.SelectedNode()
	require.True(t, ok)
	require.Equal(t, types.NodeAddress("db2"), selected)
	require.Equal(t, 1, conn.FailureCount("down1"))
}

func TestSQLiteDesyncedNodeIsSkipped(t *testing.T) {
	cluster := newSQLiteCluster(t)
	cluster.seed(t, "db1", "Donor/Desynced")
	cluster.seed(t, "db2", "Synced")

	conn, err := New([]string{"db1", "db2"}, cluster.connector(t),
		WithSelectionMode(Priority),
		WithMaxFailedAttempts(1),
		WithStateChecker(sqliteProbe()),
	)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Ping(t.Context()))

	selected, _ := conn.SelectedNode()
	require.Equal(t, types.NodeAddress("db2"), selected)
	require.Equal(t, 1, conn.FailureCount("db1"))
}

func TestSQLiteConstraintErrorDoesNotFailOver(t *testing.T) {
	cluster := newSQLiteCluster(t)
	cluster.seed(t, "db1", "Synced")
	cluster.seed(t, "db2", "Synced")

	classifier := policy.ClassifierFunc(func(err error) types.ErrorKind {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return types.KindFatal
		}

		return types.KindTransport
	})

	conn, err := New([]string{"db1", "db2"}, cluster.connector(t),
		WithSelectionMode(Priority),
		WithStateChecker(sqliteProbe()),
		WithClassifier(classifier),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx := t.Context()
	_, err = conn.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "bob")
	require.NoError(t, err)

	_, err = conn.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "bob")
	require.Error(t, err)
	require.NotErrorIs(t, err, types.ErrNoAvailableNodes)

	selected, _ := conn.SelectedNode()
	require.Equal(t, types.NodeAddress("db1"), selected)
	require.Zero(t, conn.FailureCount("db1"))
}

func TestSQLiteTransaction(t *testing.T) {
	cluster := newSQLiteCluster(t)
	cluster.seed(t, "db1", "Synced")

	conn, err := New([]string{"db1"}, cluster.connector(t))
	require.NoError(t, err)
	defer conn.Close()

	ctx := t.Context()
	require.NoError(t, conn.BeginTransaction(ctx))
	_, err = conn.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "carol")
	require.NoError(t, err)
	require.NoError(t, conn.RollBack(ctx))

	rows, err := conn.ExecuteQuery(ctx, "SELECT name FROM users")
	require.NoError(t, err)
	defer rows.Close()
	require.False(t, rows.Next())
	require.NoError(t, rows.Err())

	require.NoError(t, conn.BeginTransaction(ctx))
	affected, err := conn.ExecuteUpdate(ctx, "INSERT INTO users (name) VALUES (?)", "dave")
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, conn.Commit(ctx))
}

func TestSQLiteAllNodesDown(t *testing.T) {
	cluster := newSQLiteCluster(t)

	conn, err := New([]string{"down1", "down2"}, cluster.connector(t), WithMaxFailedAttempts(1))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Connect(t.Context())
	require.ErrorIs(t, err, types.ErrNoAvailableNodes)
	require.Contains(t, err.Error(), "down2")
}
