package topology_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clusterconn "github.com/nalgoo/cluster-connection"
	"github.com/nalgoo/cluster-connection/test/testutil"
	"github.com/nalgoo/cluster-connection/topology"
	"github.com/nalgoo/cluster-connection/types"
)

func putDrain(t *testing.T, kv jetstream.KeyValue, reason string, nodes ...types.NodeAddress) {
	t.Helper()

	data, err := json.Marshal(topology.DrainConfig{Drain: nodes, Reason: reason})
	require.NoError(t, err)

	_, err = kv.Put(t.Context(), topology.DefaultKey, data)
	require.NoError(t, err)
}

// collect reads n updates keyed by node.
func collect(t *testing.T, ch <-chan clusterconn.TopologyUpdate, n int) map[types.NodeAddress]clusterconn.TopologyUpdate {
	t.Helper()

	received := make(map[types.NodeAddress]clusterconn.TopologyUpdate, n)
	for range n {
		select {
		case update := <-ch:
			received[update.Node] = update
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for topology update (got %d of %d)", len(received), n)
		}
	}

	return received
}

func TestNewNATSNilKV(t *testing.T) {
	_, err := topology.NewNATS(nil)
	require.ErrorIs(t, err, topology.ErrNilKeyValue)
}

func TestNewNATSConfig(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-config")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	assert.Equal(t, topology.DefaultKey, watcher.Config().Key)
	assert.Equal(t, 5*time.Second, watcher.Config().PollInterval)
	assert.Equal(t, 10*time.Second, watcher.Config().InitialFetchTimeout)

	custom, err := topology.NewNATS(kv,
		topology.WithKey("galera.prod.drain"),
		topology.WithPollInterval(time.Second),
		topology.WithInitialFetchTimeout(3*time.Second),
	)
	require.NoError(t, err)
	defer custom.Close()

	assert.Equal(t, "galera.prod.drain", custom.Config().Key)
	assert.Equal(t, time.Second, custom.Config().PollInterval)
	assert.Equal(t, 3*time.Second, custom.Config().InitialFetchTimeout)
}

func TestNATSDrainNode(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-drain")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)
	assert.False(t, watcher.IsDraining("db2:3306"))

	putDrain(t, kv, "SST donor", "db2:3306")

	got := collect(t, updates, 1)
	assert.Equal(t, clusterconn.TopologyUpdate{Node: "db2:3306", DrainMode: true, Reason: "SST donor"}, got["db2:3306"])

	assert.True(t, watcher.IsDraining("db2:3306"))
	assert.False(t, watcher.IsDraining("db1:3306"))
	assert.Equal(t, "SST donor", watcher.GetDrainReason())
	assert.Equal(t, []types.NodeAddress{"db2:3306"}, watcher.Drained())
}

func TestNATSDiffEmitsOnlyChanges(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-diff")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)

	putDrain(t, kv, "upgrade", "db1:3306", "db2:3306")
	got := collect(t, updates, 2)
	assert.True(t, got["db1:3306"].DrainMode)
	assert.True(t, got["db2:3306"].DrainMode)

	// db1 stays drained, db2 returns, db3 leaves.
	putDrain(t, kv, "upgrade", "db1:3306", "db3:3306")
	got = collect(t, updates, 2)
	assert.False(t, got["db2:3306"].DrainMode)
	assert.True(t, got["db3:3306"].DrainMode)
	assert.NotContains(t, got, types.NodeAddress("db1:3306"))

	assert.Equal(t, []types.NodeAddress{"db1:3306", "db3:3306"}, watcher.Drained())
}

func TestNATSClearByDelete(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-delete")

	// Pre-set drain before watching
	putDrain(t, kv, "patching", "db3:3306")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)

	got := collect(t, updates, 1)
	assert.True(t, got["db3:3306"].DrainMode)

	require.NoError(t, kv.Delete(ctx, topology.DefaultKey))

	got = collect(t, updates, 1)
	assert.False(t, got["db3:3306"].DrainMode)
	assert.False(t, watcher.IsDraining("db3:3306"))
	assert.Empty(t, watcher.GetDrainReason())
}

func TestNATSClearByEmptyList(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-empty")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)

	putDrain(t, kv, "test", "db1:3306")
	collect(t, updates, 1)

	putDrain(t, kv, "")
	got := collect(t, updates, 1)
	assert.False(t, got["db1:3306"].DrainMode)
	assert.Empty(t, watcher.Drained())
}

func TestNATSInvalidJSON(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-invalid")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)

	putDrain(t, kv, "x", "db1:3306")
	collect(t, updates, 1)

	// Garbage clears the drain list.
	_, err = kv.Put(ctx, topology.DefaultKey, []byte("not valid json"))
	require.NoError(t, err)

	got := collect(t, updates, 1)
	assert.False(t, got["db1:3306"].DrainMode)
	assert.False(t, watcher.IsDraining("db1:3306"))
}

func TestNATSSetDrain(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-operator")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)

	require.NoError(t, watcher.SetDrain(ctx, "db1:3306", true, "donor"))
	require.NoError(t, watcher.SetDrain(ctx, "db2:3306", true, ""))
	got := collect(t, updates, 2)
	assert.True(t, got["db1:3306"].DrainMode)
	assert.True(t, got["db2:3306"].DrainMode)

	entry, err := kv.Get(ctx, topology.DefaultKey)
	require.NoError(t, err)

	var stored topology.DrainConfig
	require.NoError(t, json.Unmarshal(entry.Value(), &stored))
	assert.ElementsMatch(t, []types.NodeAddress{"db1:3306", "db2:3306"}, stored.Drain)
	assert.Equal(t, "donor", stored.Reason)

	// Removing an absent node is a no-op.
	revision := entry.Revision()
	require.NoError(t, watcher.SetDrain(ctx, "db9:3306", false, ""))
	entry, err = kv.Get(ctx, topology.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, revision, entry.Revision())

	require.NoError(t, watcher.SetDrain(ctx, "db1:3306", false, ""))
	got = collect(t, updates, 1)
	assert.False(t, got["db1:3306"].DrainMode)
	assert.Equal(t, []types.NodeAddress{"db2:3306"}, watcher.Drained())
}

func TestNATSClose(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-close")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)

	updates := watcher.Watch(t.Context())
	assert.Equal(t, updates, watcher.Watch(t.Context()))

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNATSContextCancellation(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-cancel")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(t.Context())
	updates := watcher.Watch(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNATSDrivesConnectionSelection(t *testing.T) {
	kv := testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-selection")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)
	putDrain(t, kv, "maintenance", "db1:3306")
	collect(t, updates, 1)

	var dialed []types.NodeAddress
	connector := testutil.ConnectorFunc(func(_ context.Context, node types.NodeAddress) error {
		dialed = append(dialed, node)
		return nil
	})

	conn, err := clusterconn.New([]string{"db1:3306", "db2:3306"}, connector,
		clusterconn.WithSelectionMode(clusterconn.Priority),
		clusterconn.WithStateChecker(nil),
		clusterconn.WithDrainChecker(watcher),
	)
	require.NoError(t, err)
	defer conn.Close()

	connected, err := conn.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, connected)
	assert.Equal(t, []types.NodeAddress{"db2:3306"}, dialed)
	selected, ok := conn.SelectedNode()
	require.True(t, ok)
	assert.Equal(t, types.NodeAddress("db2:3306"), selected)
}

var errKVUnavailable = errors.New("nats: timeout")

// flakyKV fails Get on demand and refuses watches so the watcher polls.
type flakyKV struct {
	jetstream.KeyValue
	failing atomic.Bool
	gets    atomic.Int64
}

func (f *flakyKV) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.gets.Add(1)
	if f.failing.Load() {
		return nil, errKVUnavailable
	}

	return f.KeyValue.Get(ctx, key)
}

func (f *flakyKV) Watch(_ context.Context, _ string, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, errKVUnavailable
}

func TestNATSPollingKeepsStateOnFetchError(t *testing.T) {
	kv := &flakyKV{KeyValue: testutil.CreateKV(t, testutil.StartEmbeddedNATS(t), "test-flaky")}
	putDrain(t, kv.KeyValue, "maintenance", "db1:3306")

	watcher, err := topology.NewNATS(kv, topology.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	updates := watcher.Watch(ctx)
	got := collect(t, updates, 1)
	require.True(t, got["db1:3306"].DrainMode)

	kv.failing.Store(true)
	failedFrom := kv.gets.Load()
	require.Eventually(t, func() bool {
		return kv.gets.Load() >= failedFrom+3
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, watcher.IsDraining("db1:3306"))
	assert.Equal(t, "maintenance", watcher.GetDrainReason())
	select {
	case update := <-updates:
		t.Fatalf("unexpected update while KV is unavailable: %+v", update)
	default:
	}

	kv.failing.Store(false)
	require.NoError(t, kv.KeyValue.Delete(ctx, topology.DefaultKey))

	got = collect(t, updates, 1)
	assert.False(t, got["db1:3306"].DrainMode)
	assert.False(t, watcher.IsDraining("db1:3306"))
}
