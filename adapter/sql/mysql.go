package sql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"github.com/nalgoo/cluster-connection/types"
)

// DefaultMySQLPort is used for node addresses without an explicit port.
const DefaultMySQLPort = "3306"

// MySQLConnector opens nodes with github.com/go-sql-driver/mysql.
//
// Every node shares the same credentials, database and driver parameters;
// only the network address differs.
type MySQLConnector struct {
	base *mysql.Config
}

// Compile-time assertion that MySQLConnector implements Connector.
var _ Connector = (*MySQLConnector)(nil)

// NewMySQLConnector creates a connector from a driver config template.
//
// The template's Addr is ignored; it is replaced by each node's address.
//
// Parameters:
//   - cfg: Driver configuration shared by all nodes
//
// Returns:
//   - *MySQLConnector: A new connector
//   - error: ConfigurationError if cfg is nil
func NewMySQLConnector(cfg *mysql.Config) (*MySQLConnector, error) {
	if cfg == nil {
		return nil, &types.ConfigurationError{Field: "mysql", Reason: "driver config cannot be nil"}
	}

	return &MySQLConnector{base: cfg.Clone()}, nil
}

// NewMySQLConnectorFromDSN creates a connector from a go-sql-driver DSN such
// as "user:pass@tcp(db1:3306)/app?timeout=2s".
//
// Parameters:
//   - dsn: Data source name; its address is used only as a template
//
// Returns:
//   - *MySQLConnector: A new connector
//   - error: ConfigurationError if the DSN cannot be parsed
func NewMySQLConnectorFromDSN(dsn string) (*MySQLConnector, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "dsn", Reason: err.Error()}
	}

	return NewMySQLConnector(cfg)
}

// Config returns the driver configuration used for a node.
//
// Parameters:
//   - addr: The node address
//
// Returns:
//   - *mysql.Config: A copy of the template pointing at addr
func (c *MySQLConnector) Config(addr types.NodeAddress) *mysql.Config {
	cfg := c.base.Clone()
	cfg.Net = "tcp"
	cfg.Addr = addr.HostPort(DefaultMySQLPort)

	return cfg
}

// Connect opens a connection to the given node.
func (c *MySQLConnector) Connect(ctx context.Context, addr types.NodeAddress) (Conn, error) {
	connector, err := mysql.NewConnector(c.Config(addr))
	if err != nil {
		return nil, err
	}

	return pin(ctx, sql.OpenDB(connector))
}
