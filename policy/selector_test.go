package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nalgoo/cluster-connection/node"
	"github.com/nalgoo/cluster-connection/policy"
	"github.com/nalgoo/cluster-connection/types"
)

func newRegistry(t *testing.T, addrs ...string) *node.Registry {
	t.Helper()

	r, err := node.NewRegistry(addrs...)
	require.NoError(t, err)

	return r
}

// sweep repeatedly selects a node and records a failure against it until the
// selector reports exhaustion.
func sweep(t *testing.T, s policy.Selector, r *node.Registry, maxFailed int) []types.NodeAddress {
	t.Helper()

	var order []types.NodeAddress
	for {
		addr, ok := s.Select(r, maxFailed, nil)
		if !ok {
			return order
		}
		order = append(order, addr)

		_, err := r.RecordFailure(addr)
		require.NoError(t, err)
	}
}

func TestNewSelector(t *testing.T) {
	require.Equal(t, types.Priority, policy.NewSelector(types.Priority).Mode())
	require.Equal(t, types.RoundRobin, policy.NewSelector(types.RoundRobin).Mode())
	require.Equal(t, types.RoundRobin, policy.NewSelector(types.SelectionMode(42)).Mode())
}

func TestRoundRobinThreeNodesSweep(t *testing.T) {
	r := newRegistry(t, "A", "B", "C")

	order := sweep(t, policy.NewRoundRobin(), r, 2)

	require.Equal(t, []types.NodeAddress{"A", "B", "C", "A", "B", "C"}, order)
}

func TestRoundRobinIsBreadthFirst(t *testing.T) {
	for _, maxFailed := range []int{1, 2, 3, 5} {
		r := newRegistry(t, "n1", "n2", "n3", "n4")
		order := sweep(t, policy.NewRoundRobin(), r, maxFailed)

		require.Len(t, order, 4*maxFailed)

		// Each consecutive window of len(nodes) selections covers every node once.
		for level := 0; level < maxFailed; level++ {
			window := order[level*4 : (level+1)*4]
			require.ElementsMatch(t, []types.NodeAddress{"n1", "n2", "n3", "n4"}, window)
		}
	}
}

func TestPriorityPrefersLowestIndex(t *testing.T) {
	r := newRegistry(t, "A", "B", "C")

	order := sweep(t, policy.NewPriority(), r, 2)

	require.Equal(t, []types.NodeAddress{"A", "A", "B", "B", "C", "C"}, order)
}

func TestPriorityNeverSkipsEarlierNodeWithCapacity(t *testing.T) {
	r := newRegistry(t, "A", "B", "C")
	_, _ = r.RecordFailure("B")
	_, _ = r.RecordFailure("C")

	addr, ok := policy.NewPriority().Select(r, 3, nil)
	require.True(t, ok)
	require.Equal(t, types.NodeAddress("A"), addr)

	_, _ = r.RecordFailure("A")
	_, _ = r.RecordFailure("A")

	addr, ok = policy.NewPriority().Select(r, 3, nil)
	require.True(t, ok)
	require.Equal(t, types.NodeAddress("A"), addr)
}

func TestSelectorExhaustion(t *testing.T) {
	selectors := []policy.Selector{policy.NewPriority(), policy.NewRoundRobin()}

	for _, s := range selectors {
		t.Run(s.Mode().String(), func(t *testing.T) {
			r := newRegistry(t, "A", "B")

			for i := 0; i < 3; i++ {
				_, _ = r.RecordFailure("A")
			}
			_, _ = r.RecordFailure("B")
			_, _ = r.RecordFailure("B")

			// B is one unit under the cap.
			addr, ok := s.Select(r, 3, nil)
			require.True(t, ok)
			require.Equal(t, types.NodeAddress("B"), addr)

			_, _ = r.RecordFailure("B")

			_, ok = s.Select(r, 3, nil)
			require.False(t, ok)
		})
	}
}

func TestSelectorEmptyRegistry(t *testing.T) {
	r := newRegistry(t)

	_, ok := policy.NewRoundRobin().Select(r, 2, nil)
	require.False(t, ok)

	_, ok = policy.NewPriority().Select(r, 2, nil)
	require.False(t, ok)
}

func TestSelectorZeroCapIsExhausted(t *testing.T) {
	r := newRegistry(t, "A")

	_, ok := policy.NewRoundRobin().Select(r, 0, nil)
	require.False(t, ok)

	_, ok = policy.NewPriority().Select(r, 0, nil)
	require.False(t, ok)
}

func TestSelectorSkipsDrainingNodes(t *testing.T) {
	skipA := func(addr types.NodeAddress) bool { return addr == "A" }

	t.Run("priority", func(t *testing.T) {
		r := newRegistry(t, "A", "B")

		addr, ok := policy.NewPriority().Select(r, 2, skipA)
		require.True(t, ok)
		require.Equal(t, types.NodeAddress("B"), addr)
	})

	t.Run("round robin", func(t *testing.T) {
		r := newRegistry(t, "A", "B", "C")

		order := []types.NodeAddress{}
		for {
			addr, ok := policy.NewRoundRobin().Select(r, 1, skipA)
			if !ok {
				break
			}
			order = append(order, addr)
			_, _ = r.RecordFailure(addr)
		}

		// A is only used once nothing else qualifies.
		require.Equal(t, []types.NodeAddress{"B", "C", "A"}, order)
	})

	t.Run("falls back when every node is skipped", func(t *testing.T) {
		r := newRegistry(t, "A")

		addr, ok := policy.NewPriority().Select(r, 2, skipA)
		require.True(t, ok)
		require.Equal(t, types.NodeAddress("A"), addr)
	})
}
