package policy

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/nalgoo/cluster-connection/types"
)

// Classifier decides whether a driver error is worth failing over for.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type Classifier interface {
	// Classify returns the kind of err. Errors that are not recognised as
	// fatal must be reported as retryable.
	//
	// Parameters:
	//   - err: A non-nil error returned by the single-node driver
	//
	// Returns:
	//   - types.ErrorKind: The classification
	Classify(err error) types.ErrorKind
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(err error) types.ErrorKind

// Classify calls f(err).
func (f ClassifierFunc) Classify(err error) types.ErrorKind {
	return f(err)
}

// ErrorNumber values reported by MySQL, MariaDB and Galera servers.
const (
	// ErWSREPNotReady is ER_UNKNOWN_COM_ERROR as returned by a Galera node
	// that has not yet been prepared for application use.
	ErWSREPNotReady uint16 = 1047
)

// defaultFatalCodes are server errors caused by the statement or the schema.
var defaultFatalCodes = map[uint16]struct{}{
	1022: {}, // ER_DUP_KEY
	1048: {}, // ER_BAD_NULL_ERROR
	1050: {}, // ER_TABLE_EXISTS_ERROR
	1051: {}, // ER_BAD_TABLE_ERROR
	1052: {}, // ER_NON_UNIQ_ERROR (ambiguous column)
	1054: {}, // ER_BAD_FIELD_ERROR
	1060: {}, // ER_DUP_FIELDNAME
	1062: {}, // ER_DUP_ENTRY
	1064: {}, // ER_PARSE_ERROR
	1091: {}, // ER_CANT_DROP_FIELD_OR_KEY
	1146: {}, // ER_NO_SUCH_TABLE
	1149: {}, // ER_SYNTAX_ERROR
	1205: {}, // ER_LOCK_WAIT_TIMEOUT
	1213: {}, // ER_LOCK_DEADLOCK (also Galera certification failure)
	1216: {}, // ER_NO_REFERENCED_ROW
	1217: {}, // ER_ROW_IS_REFERENCED
	1451: {}, // ER_ROW_IS_REFERENCED_2
	1452: {}, // ER_NO_REFERENCED_ROW_2
	1557: {}, // ER_FOREIGN_DUPLICATE_KEY
	1586: {}, // ER_DUP_ENTRY_WITH_KEY_NAME
	1761: {}, // ER_FOREIGN_DUPLICATE_KEY_WITH_CHILD_INFO
	1762: {}, // ER_FOREIGN_DUPLICATE_KEY_WITHOUT_CHILD_INFO
	3819: {}, // ER_CHECK_CONSTRAINT_VIOLATED
	4025: {}, // ER_CONSTRAINT_FAILED (MariaDB)
}

// MySQLClassifier classifies errors from github.com/go-sql-driver/mysql.
//
// Schema, constraint and syntax errors are fatal; ER_UNKNOWN_COM_ERROR (1047)
// is the Galera "not ready" signal; everything else, including unknown server
// errors, is treated as a transport failure so that the router fails over.
type MySQLClassifier struct {
	fatal    map[uint16]struct{}
	notReady map[uint16]struct{}
}

// MySQLClassifierOption configures a MySQLClassifier.
type MySQLClassifierOption func(*MySQLClassifier)

// WithFatalCodes marks additional server error numbers as fatal.
//
// Parameters:
//   - codes: Server error numbers
//
// Returns:
//   - MySQLClassifierOption: Configuration option
func WithFatalCodes(codes ...uint16) MySQLClassifierOption {
	return func(c *MySQLClassifier) {
		for _, code := range codes {
			c.fatal[code] = struct{}{}
		}
	}
}

// WithNotReadyCodes marks additional server error numbers as "node not ready".
//
// Parameters:
//   - codes: Server error numbers
//
// Returns:
//   - MySQLClassifierOption: Configuration option
func WithNotReadyCodes(codes ...uint16) MySQLClassifierOption {
	return func(c *MySQLClassifier) {
		for _, code := range codes {
			c.notReady[code] = struct{}{}
		}
	}
}

// NewMySQLClassifier creates a new MySQLClassifier.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *MySQLClassifier: A new classifier
func NewMySQLClassifier(opts ...MySQLClassifierOption) *MySQLClassifier {
	c := &MySQLClassifier{
		fatal:    make(map[uint16]struct{}, len(defaultFatalCodes)),
		notReady: map[uint16]struct{}{ErWSREPNotReady: {}},
	}
	for code := range defaultFatalCodes {
		c.fatal[code] = struct{}{}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify implements Classifier.
func (c *MySQLClassifier) Classify(err error) types.ErrorKind {
	if err == nil {
		return types.KindTransport
	}

	// Explicitly tagged errors win.
	var driverErr *types.DriverError
	if errors.As(err, &driverErr) {
		return driverErr.Kind
	}

	var notSynced *types.ReplicationNotSyncedError
	if errors.As(err, &notSynced) {
		return types.KindClusterNotReady
	}

	// The caller gave up; the node is not to blame.
	if errors.Is(err, context.Canceled) {
		return types.KindFatal
	}

	// Misuse of the transaction API fails the same way on every node.
	if errors.Is(err, types.ErrNoTransaction) || errors.Is(err, types.ErrTransactionActive) ||
		errors.Is(err, types.ErrConnectionClosed) {
		return types.KindFatal
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if _, ok := c.notReady[mysqlErr.Number]; ok {
			return types.KindClusterNotReady
		}
		if _, ok := c.fatal[mysqlErr.Number]; ok {
			return types.KindFatal
		}

		return types.KindTransport
	}

	// driver.ErrBadConn, mysql.ErrInvalidConn, net.Error and anything
	// unrecognised end up here.
	return types.KindTransport
}

// IsRetryable reports whether err should trigger failover to another node.
//
// Parameters:
//   - c: The classifier to use
//   - err: The error to inspect
//
// Returns:
//   - bool: true unless err is classified as fatal
func IsRetryable(c Classifier, err error) bool {
	return c.Classify(err).Retryable()
}
