package integration_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/nalgoo/cluster-connection/test/testutil"
)

// shared holds the MariaDB server used by all integration tests.
var shared *testutil.MariaDBContainer

// TestMain starts one MariaDB container for the package. This avoids the
// overhead of starting a container for each individual test.
func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		return
	}

	if os.Getenv("SKIP_INTEGRATION_TESTS") != "" {
		fmt.Println("Skipping integration tests (SKIP_INTEGRATION_TESTS is set)")

		return
	}

	ctx := context.Background()

	fmt.Println("Starting shared MariaDB container for integration tests...")
	c, err := testutil.RunMariaDB(ctx, nil)
	if err != nil {
		fmt.Printf("Failed to start MariaDB: %v\n", err)
		os.Exit(1)
	}
	shared = c

	code := m.Run()

	fmt.Println("Cleaning up MariaDB container...")
	_ = shared.Terminate(ctx)

	os.Exit(code)
}

// requireShared skips the test when the shared server is not available.
func requireShared(t *testing.T) *testutil.MariaDBContainer {
	t.Helper()

	testutil.SkipIfNoIntegration(t)
	if shared == nil {
		t.Skip("shared MariaDB container not started")
	}

	return shared
}
