package policy_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/nalgoo/cluster-connection/policy"
	"github.com/nalgoo/cluster-connection/types"
)

func TestMySQLClassifier(t *testing.T) {
	c := policy.NewMySQLClassifier()

	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"wsrep not ready", &mysql.MySQLError{Number: 1047, Message: "WSREP has not yet prepared node for application use"}, types.KindClusterNotReady},
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}, types.KindFatal},
		{"syntax error", &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}, types.KindFatal},
		{"no such table", &mysql.MySQLError{Number: 1146, Message: "Table 'db.t' doesn't exist"}, types.KindFatal},
		{"unknown column", &mysql.MySQLError{Number: 1054}, types.KindFatal},
		{"table exists", &mysql.MySQLError{Number: 1050}, types.KindFatal},
		{"ambiguous column", &mysql.MySQLError{Number: 1052}, types.KindFatal},
		{"foreign key", &mysql.MySQLError{Number: 1452}, types.KindFatal},
		{"deadlock", &mysql.MySQLError{Number: 1213}, types.KindFatal},
		{"server shutdown", &mysql.MySQLError{Number: 1053}, types.KindTransport},
		{"too many connections", &mysql.MySQLError{Number: 1040}, types.KindTransport},
		{"bad conn", driver.ErrBadConn, types.KindTransport},
		{"invalid conn", mysql.ErrInvalidConn, types.KindTransport},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, types.KindTransport},
		{"deadline", context.DeadlineExceeded, types.KindTransport},
		{"canceled", context.Canceled, types.KindFatal},
		{"unknown", errors.New("something odd"), types.KindTransport},
		{"no transaction", types.ErrNoTransaction, types.KindFatal},
		{"nested transaction", types.ErrTransactionActive, types.KindFatal},
		{"not synced", &types.ReplicationNotSyncedError{Node: "db1", State: "Donor/Desynced"}, types.KindClusterNotReady},
		{"tagged fatal", &types.DriverError{Kind: types.KindFatal, Message: "bad query"}, types.KindFatal},
		{"wrapped", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), types.KindFatal},
		{"node wrapped", &types.NodeError{Node: "db1", Operation: "exec", Cause: &mysql.MySQLError{Number: 1047}}, types.KindClusterNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.Classify(tt.err))
			require.Equal(t, tt.want != types.KindFatal, policy.IsRetryable(c, tt.err))
		})
	}
}

func TestMySQLClassifierOptions(t *testing.T) {
	c := policy.NewMySQLClassifier(
		policy.WithFatalCodes(1040),
		policy.WithNotReadyCodes(1053),
	)

	require.Equal(t, types.KindFatal, c.Classify(&mysql.MySQLError{Number: 1040}))
	require.Equal(t, types.KindClusterNotReady, c.Classify(&mysql.MySQLError{Number: 1053}))

	// Defaults are kept.
	require.Equal(t, types.KindFatal, c.Classify(&mysql.MySQLError{Number: 1062}))
	require.Equal(t, types.KindClusterNotReady, c.Classify(&mysql.MySQLError{Number: 1047}))
}

func TestClassifierFunc(t *testing.T) {
	var c policy.Classifier = policy.ClassifierFunc(func(error) types.ErrorKind {
		return types.KindFatal
	})

	require.Equal(t, types.KindFatal, c.Classify(errors.New("x")))
}
