package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go/modules/mariadb"

	"github.com/nalgoo/cluster-connection/types"
)

// MariaDBContainer wraps a MariaDB test container.
type MariaDBContainer struct {
	Container *mariadb.MariaDBContainer
	// Node is the host:port address of the container's mapped SQL port.
	Node types.NodeAddress
	// Config is a driver config for the database; its Addr is Node.
	Config *mysql.Config
}

// MariaDBOptions configures the MariaDB container.
type MariaDBOptions struct {
	// Image is the MariaDB image to use. Defaults to "mariadb:11.4".
	Image string
	// Database is the schema to create. Defaults to "clusterconn".
	Database string
	// Username is the application user. Defaults to "clusterconn".
	Username string
	// Password is the application user's password. Defaults to "clusterconn".
	Password string
}

// DefaultMariaDBOptions returns default options for the MariaDB container.
func DefaultMariaDBOptions() MariaDBOptions {
	return MariaDBOptions{
		Image:    "mariadb:11.4",
		Database: "clusterconn",
		Username: "clusterconn",
		Password: "clusterconn",
	}
}

// SkipIfNoIntegration skips the test in -short mode or when
// SKIP_INTEGRATION_TESTS is set.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("SKIP_INTEGRATION_TESTS") != "" {
		t.Skip("skipping integration test: SKIP_INTEGRATION_TESTS is set")
	}
}

// StartMariaDB starts a MariaDB container for a single test.
//
// The container is automatically terminated when the test completes. A
// standalone MariaDB server has no wsrep status, so the replication probe
// accepts it as a usable node.
//
// Parameters:
//   - ctx: Context for container operations
//   - t: Testing context for cleanup registration
//   - opts: Optional configuration (nil uses defaults)
//
// Returns:
//   - *MariaDBContainer: Container with connection details
//   - error: Error if container fails to start
func StartMariaDB(ctx context.Context, t *testing.T, opts *MariaDBOptions) (*MariaDBContainer, error) {
	t.Helper()

	c, err := RunMariaDB(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Register cleanup
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate MariaDB container: %v", err)
		}
	})

	return c, nil
}

// RunMariaDB starts a MariaDB container owned by the caller.
//
// Use it from TestMain to share one container across a package; the caller
// must call Terminate.
//
// Parameters:
//   - ctx: Context for container operations
//   - opts: Optional configuration (nil uses defaults)
//
// Returns:
//   - *MariaDBContainer: Container with connection details
//   - error: Error if container fails to start
func RunMariaDB(ctx context.Context, opts *MariaDBOptions) (*MariaDBContainer, error) {
	if opts == nil {
		defaultOpts := DefaultMariaDBOptions()
		opts = &defaultOpts
	}

	container, err := mariadb.Run(ctx, opts.Image,
		mariadb.WithDatabase(opts.Database),
		mariadb.WithUsername(opts.Username),
		mariadb.WithPassword(opts.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start MariaDB container: %w", err)
	}

	c := &MariaDBContainer{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	c.Node = types.NodeAddress(net.JoinHostPort(host, port.Port()))

	cfg := mysql.NewConfig()
	cfg.User = opts.Username
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = string(c.Node)
	cfg.DBName = opts.Database
	cfg.ParseTime = true
	c.Config = cfg

	return c, nil
}

// Terminate stops and removes the container.
func (c *MariaDBContainer) Terminate(ctx context.Context) error {
	if c == nil || c.Container == nil {
		return nil
	}

	return c.Container.Terminate(ctx)
}

// UnreachableNode returns a loopback address nothing listens on.
//
// The port is obtained by binding and immediately releasing a listener, so
// dialing it fails fast with "connection refused".
func UnreachableNode(t *testing.T) types.NodeAddress {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	return types.NodeAddress(addr)
}
