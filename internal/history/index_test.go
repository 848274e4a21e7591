package history

import (
	"testing"

	"osmesa/internal/osm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyIndexMergesRepeatedRefs(t *testing.T) {
	ways := PreprocessWays([]osm.Way{
		way(10, 1, 1, at(1), []int64{1, 2, 3, 1}, nil),
	})
	ix := BuildDependencyIndex(ways)
	assert.Equal(t, 3, ix.Len())

	refs := ix.Refs(1)
	require.Len(t, refs, 1)
	assert.Equal(t, int64(10), refs[0].WayID)
	assert.Equal(t, []int{0, 3}, refs[0].Positions)
	assert.Empty(t, ix.Refs(99))
}

func TestDependencyIndexRefsAt(t *testing.T) {
	ways := PreprocessWays([]osm.Way{
		way(10, 1, 1, at(1), []int64{1, 2}, nil),
		way(10, 2, 2, at(5), []int64{1, 3}, nil),
		way(11, 1, 3, at(2), []int64{1, 4}, nil),
	})
	ix := BuildDependencyIndex(ways)
	require.Len(t, ix.Refs(1), 3)

	at0 := ix.RefsAt(1, at(0))
	assert.Empty(t, at0)

	at3 := ix.RefsAt(1, at(3))
	require.Len(t, at3, 2)
	assert.ElementsMatch(t, []int64{10, 11}, []int64{at3[0].WayID, at3[1].WayID})

	at5 := ix.RefsAt(2, at(5))
	assert.Empty(t, at5, "way 10 v1 is closed at the v2 instant")
	require.Len(t, ix.RefsAt(3, at(5)), 1)
	assert.Equal(t, int64(2), ix.RefsAt(3, at(5))[0].WayVersion)
}
