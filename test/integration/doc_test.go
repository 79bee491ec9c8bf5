// Package integration_test provides end-to-end tests for cluster connections
// against real servers.
//
// # Running Integration Tests
//
// Integration tests are skipped with the -short flag or when
// SKIP_INTEGRATION_TESTS is set:
//
//	go test -short ./...           # Skips integration tests
//	go test ./test/integration/... # Runs integration tests
//
// The tests require Docker; testcontainers starts one MariaDB server that is
// shared by the whole package. Failover is exercised by pairing it with
// loopback addresses that refuse connections, and drain mode by an embedded
// NATS server.
package integration_test
