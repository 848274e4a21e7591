package history

import (
	"context"
	"testing"

	"osmesa/internal/osm"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, nodes []osm.Node, ways []osm.Way) []Snapshot {
	t.Helper()
	nodes = PreprocessNodes(nodes)
	ways = PreprocessWays(ways)
	triggers := ResolveTriggers(nodes, ways, BuildDependencyIndex(ways))
	snaps, err := AssembleWays(context.Background(), triggers, ways, NewNodeTimeline(nodes), 3)
	require.NoError(t, err)
	return snaps
}

func triangle() []osm.Node {
	return []osm.Node{
		node(1, 1, 1, at(0), 0, 0, nil),
		node(2, 1, 1, at(0), 1, 0, nil),
		node(3, 1, 1, at(0), 1, 1, nil),
	}
}

func TestAssembleWaysClosedAreaBecomesPolygon(t *testing.T) {
	snaps := assemble(t, triangle(), []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2, 3, 1}, osm.Tags{"building": "yes"}),
	})
	require.Len(t, snaps, 1)
	poly, ok := snaps[0].Geometry.(orb.Polygon)
	require.True(t, ok, "got %T", snaps[0].Geometry)
	require.Len(t, poly, 1)
	assert.Len(t, poly[0], 4)
	assert.Equal(t, orb.CCW, poly[0].Orientation())
	assert.True(t, snaps[0].Valid)
	assert.Equal(t, at(1), snaps[0].Updated)
	assert.Equal(t, int64(1), snaps[0].MajorVersion)
}

func TestAssembleWaysClosedWithoutAreaTagStaysLine(t *testing.T) {
	snaps := assemble(t, triangle(), []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2, 3, 1}, osm.Tags{"highway": "footway"}),
	})
	require.Len(t, snaps, 1)
	ls, ok := snaps[0].Geometry.(orb.LineString)
	require.True(t, ok, "got %T", snaps[0].Geometry)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, ls)
}

func TestAssembleWaysAreaNoOverridesAreaKey(t *testing.T) {
	snaps := assemble(t, triangle(), []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2, 3, 1}, osm.Tags{"building": "yes", "area": "no"}),
	})
	require.Len(t, snaps, 1)
	assert.IsType(t, orb.LineString{}, snaps[0].Geometry)
}

func TestAssembleWaysDeletedPointInvalidatesSnapshot(t *testing.T) {
	nodes := append(triangle(), deletedNode(2, 2, 30, at(3)))
	snaps := assemble(t, nodes, []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2}, osm.Tags{"highway": "path"}),
	})
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Valid)
	assert.NotNil(t, snaps[0].Geometry)

	assert.Equal(t, at(3), snaps[1].Updated)
	assert.Equal(t, int64(30), snaps[1].Changeset)
	assert.False(t, snaps[1].Valid)
	assert.True(t, snaps[1].Visible)
	assert.Nil(t, snaps[1].Geometry)
}

func TestAssembleWaysMissingPointInvalidatesSnapshot(t *testing.T) {
	snaps := assemble(t, triangle(), []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2, 42}, nil),
	})
	require.Len(t, snaps, 1)
	assert.False(t, snaps[0].Valid)
}

func TestAssembleWaysDropsDegenerate(t *testing.T) {
	nodes := []osm.Node{
		node(1, 1, 1, at(0), 5, 5, nil),
		node(2, 1, 1, at(0), 5, 5, nil),
	}
	snaps := assemble(t, nodes, []osm.Way{way(100, 1, 10, at(1), []int64{1, 2}, nil)})
	assert.Empty(t, snaps)
}

func TestAssembleWaysDeletedWayIsTombstone(t *testing.T) {
	ways := []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2}, osm.Tags{"highway": "path"}),
		{Info: osm.Info{ID: 100, Version: 2, Changeset: 11, Timestamp: at(2)}},
	}
	snaps := assemble(t, triangle(), ways)
	require.Len(t, snaps, 2)
	tomb := snaps[1]
	assert.False(t, tomb.Visible)
	assert.True(t, tomb.Valid)
	assert.Nil(t, tomb.Geometry)
	assert.Equal(t, osm.Tags{"highway": "path"}, tomb.Tags)
	assert.Equal(t, int64(2), tomb.MajorVersion)
}

func TestAssembleWaysCancelled(t *testing.T) {
	ways := PreprocessWays([]osm.Way{way(100, 1, 10, at(1), []int64{1, 2}, nil)})
	nodes := PreprocessNodes(triangle())
	triggers := ResolveTriggers(nodes, ways, BuildDependencyIndex(ways))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AssembleWays(ctx, triggers, ways, NewNodeTimeline(nodes), 2)
	assert.ErrorIs(t, err, context.Canceled)
}
