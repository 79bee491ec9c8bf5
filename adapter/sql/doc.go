// Package sql provides the single-node driver abstraction for cluster
// connections.
//
// # Interfaces
//
//   - [Connector]: Opens a physical connection to one node
//   - [Conn]: A physical connection pinned to one server session
//
// # Implementations
//
//   - [MySQLConnector]: Uses github.com/go-sql-driver/mysql; the config
//     template's credentials and parameters are shared by every node
//   - [DBConnector]: Uses any registered database/sql driver with a per-node
//     DSN builder (handy for tests with SQLite)
//
// # Usage with Connection
//
//	connector, _ := sqladapter.NewMySQLConnectorFromDSN("app:secret@tcp(db1:3306)/shop?timeout=2s")
//
//	conn, _ := clusterconn.New([]string{"db1:3306", "db2:3306", "db3:3306"}, connector)
//	defer conn.Close()
//
//	rows, err := conn.ExecuteQuery(ctx, "SELECT id, name FROM users WHERE id = ?", 42)
//
// # Transactions
//
// BeginTx, Commit and Rollback operate on the pinned session. A Conn holds at
// most one open transaction; statements issued while it is open run inside it.
package sql
