package history

import (
	"testing"

	"osmesa/internal/osm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(nodes []osm.Node, ways []osm.Way) []Trigger {
	nodes = PreprocessNodes(nodes)
	ways = PreprocessWays(ways)
	return ResolveTriggers(nodes, ways, BuildDependencyIndex(ways))
}

func TestResolveTriggersCollapsesChangeset(t *testing.T) {
	nodes := []osm.Node{
		node(1, 1, 1, at(0), 0, 0, nil),
		node(2, 1, 1, at(0), 1, 0, nil),
		node(1, 2, 20, at(2), 0, 1, nil),
		node(2, 2, 20, at(3), 1, 1, nil),
	}
	ways := []osm.Way{way(100, 1, 10, at(1), []int64{1, 2}, nil)}

	got := resolve(nodes, ways)
	require.Len(t, got, 2)
	assert.Equal(t, Trigger{Changeset: 10, ID: 100, Version: 1, At: at(1)}, got[0])
	assert.Equal(t, Trigger{Changeset: 20, ID: 100, Version: 1, At: at(3)}, got[1])
}

func TestResolveTriggersDedupesDirectEdit(t *testing.T) {
	nodes := []osm.Node{
		node(1, 1, 10, at(1), 0, 0, nil),
		node(2, 1, 10, at(1), 1, 0, nil),
	}
	ways := []osm.Way{way(100, 1, 10, at(1), []int64{1, 2}, nil)}

	got := resolve(nodes, ways)
	require.Len(t, got, 1)
	assert.Equal(t, Trigger{Changeset: 10, ID: 100, Version: 1, At: at(1)}, got[0])
}

func TestResolveTriggersIgnoresEditsOutsideValidity(t *testing.T) {
	nodes := []osm.Node{
		node(1, 1, 1, at(0), 0, 0, nil),
		node(2, 1, 1, at(0), 1, 0, nil),
		node(3, 1, 1, at(0), 2, 0, nil),
		node(1, 2, 5, at(6), 0, 5, nil),
	}
	ways := []osm.Way{
		way(100, 1, 10, at(1), []int64{1, 2}, nil),
		way(100, 2, 11, at(4), []int64{2, 3}, nil),
	}
	got := resolve(nodes, ways)
	require.Len(t, got, 2, "node 1 is no longer referenced at its second edit")
	assert.Equal(t, int64(1), got[0].Version)
	assert.Equal(t, int64(2), got[1].Version)
}

func TestResolveTriggersMaxVersionWithinChangeset(t *testing.T) {
	derived := []Trigger{
		{Changeset: 7, ID: 1, Version: 2, At: at(5)},
		{Changeset: 7, ID: 1, Version: 3, At: at(4)},
	}
	got := mergeTriggers(derived, nil)
	require.Len(t, got, 1)
	assert.Equal(t, Trigger{Changeset: 7, ID: 1, Version: 3, At: at(5)}, got[0])
}
