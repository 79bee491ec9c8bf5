package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalgoo/cluster-connection/types"
)

func TestNewRegistryPreservesOrder(t *testing.T) {
	r, err := NewRegistry("db3", "db1:3306", "db2")
	require.NoError(t, err)

	require.Equal(t, 3, r.Len())
	require.Equal(t, []types.NodeAddress{"db3", "db1:3306", "db2"}, r.Nodes())
	require.Equal(t, types.NodeAddress("db1:3306"), r.At(1))

	for _, n := range r.Nodes() {
		require.Equal(t, 0, r.FailureCount(n))
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r, err := NewRegistry("db1")
	require.NoError(t, err)

	err = r.Add("db1")
	require.ErrorIs(t, err, types.ErrDuplicateNode)

	var dupErr *types.DuplicateNodeError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, types.NodeAddress("db1"), dupErr.Node)
	require.Equal(t, 1, r.Len())

	_, err = NewRegistry("db1", "db2", "db1")
	require.ErrorIs(t, err, types.ErrDuplicateNode)
}

func TestRegistryRejectsEmptyAddress(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	require.ErrorIs(t, r.Add("  "), types.ErrConfiguration)
	require.Equal(t, 0, r.Len())
}

func TestRegistryRecordFailure(t *testing.T) {
	r, err := NewRegistry("db1", "db2")
	require.NoError(t, err)

	count, err := r.RecordFailure("db1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = r.RecordFailure("db1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	assert.Equal(t, 2, r.FailureCount("db1"))
	assert.Equal(t, 0, r.FailureCount("db2"))
}

func TestRegistryRecordFailureUnknownNode(t *testing.T) {
	r, err := NewRegistry("db1")
	require.NoError(t, err)

	_, err = r.RecordFailure("db9")
	require.ErrorIs(t, err, types.ErrUnknownNode)
	require.False(t, r.Contains("db9"))
	require.Equal(t, 0, r.FailureCount("db9"))
}

func TestRegistryNodesReturnsCopy(t *testing.T) {
	r, err := NewRegistry("db1", "db2")
	require.NoError(t, err)

	nodes := r.Nodes()
	nodes[0] = "mutated"

	require.Equal(t, types.NodeAddress("db1"), r.At(0))
}
