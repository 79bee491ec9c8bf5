// Package testutil provides test helpers and mock implementations for
// cluster connection tests.
//
// # Mock Implementations
//
//   - [MockConn]: In-memory sqladapter.Conn recording executed statements
//   - [ConnectorFunc]: Function adapter for sqladapter.Connector returning MockConn
//   - [TestMetricsCollector]: types.MetricsCollector that records every call
//
// # Usage
//
//	connector := testutil.ConnectorFunc(func(_ context.Context, node types.NodeAddress) error {
//	    if node == "db1:3306" {
//	        return errors.New("connection refused")
//	    }
//	    return nil
//	})
//	metrics := testutil.NewTestMetricsCollector()
//	conn, _ := clusterconn.New(nodes, connector, clusterconn.WithMetrics(metrics))
//
// # Integration Test Helpers
//
//   - StartEmbeddedNATS: Starts an embedded NATS server with JetStream for
//     topology tests
//   - CreateKV: Creates a JetStream KV bucket on that server
//   - StartMariaDB: Starts a MariaDB test container (requires Docker)
//   - UnreachableNode: Returns a loopback address that refuses connections
//   - SkipIfNoIntegration: Skips in -short mode or when SKIP_INTEGRATION_TESTS is set
package testutil
