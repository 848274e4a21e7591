package history

import (
	"context"
	"testing"

	"osmesa/internal/osm"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mpTags = osm.Tags{"type": "multipolygon", "landuse": "forest"}

func lineSnap(id, changeset int64, h int, g orb.Geometry) Snapshot {
	return Snapshot{ID: id, Changeset: changeset, Updated: at(h), Visible: true, Valid: true, MajorVersion: 1, Geometry: g}
}

func assembleRels(t *testing.T, rels []osm.Relation, ways []Snapshot) ([]Snapshot, []Omission) {
	t.Helper()
	snaps, oms, err := AssembleRelations(context.Background(), PreprocessRelations(rels), AssignMinorVersions(ways), 2)
	require.NoError(t, err)
	return snaps, oms
}

func TestAssembleRelationsMissingMemberIsOmitted(t *testing.T) {
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer")),
	}, nil)
	assert.Empty(t, snaps)
	require.Len(t, oms, 1)
	assert.Equal(t, int64(500), oms[0].ID)
	assert.Equal(t, at(2), oms[0].At)
	assert.Contains(t, oms[0].Reason, "unresolved")
}

func TestAssembleRelationsInvalidMemberIsOmitted(t *testing.T) {
	bad := lineSnap(100, 9, 1, nil)
	bad.Valid = false
	_, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer")),
	}, []Snapshot{bad})
	require.Len(t, oms, 1)
}

func TestAssembleRelationsOuterAndInner(t *testing.T) {
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer"), wayMember(101, "inner"), osm.Member{Type: osm.TypeNode, Ref: 1, Role: "label"}),
	}, []Snapshot{
		lineSnap(100, 10, 1, sq(0, 0, 10)),
		lineSnap(101, 11, 1, sq(2, 2, 2)),
	})
	assert.Empty(t, oms)
	require.Len(t, snaps, 1)
	s := snaps[0]
	assert.Equal(t, int64(500), s.ID)
	assert.Equal(t, int64(50), s.Changeset)
	assert.Equal(t, at(2), s.Updated)
	assert.Equal(t, mpTags, s.Tags)
	poly, ok := s.Geometry.(orb.Polygon)
	require.True(t, ok, "got %T", s.Geometry)
	assert.Len(t, poly, 2)
}

func TestAssembleRelationsUsesAreaMember(t *testing.T) {
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer")),
	}, []Snapshot{
		lineSnap(100, 10, 1, orb.Polygon{orb.Ring(sq(0, 0, 10))}),
	})
	assert.Empty(t, oms)
	require.Len(t, snaps, 1)
	assert.IsType(t, orb.Polygon{}, snaps[0].Geometry)
}

func TestAssembleRelationsMemberChangeTriggers(t *testing.T) {
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer")),
	}, []Snapshot{
		lineSnap(100, 10, 1, sq(0, 0, 10)),
		lineSnap(100, 60, 5, sq(0, 0, 12)),
	})
	assert.Empty(t, oms)
	require.Len(t, snaps, 2)
	assert.Equal(t, at(5), snaps[1].Updated)
	assert.Equal(t, int64(60), snaps[1].Changeset)
	assert.Equal(t, int64(1), snaps[1].MajorVersion)
	assert.Equal(t, orb.Point{12, 12}, snaps[1].Geometry.Bound().Max)
}

func TestAssembleRelationsDeletedVersion(t *testing.T) {
	del := osm.Relation{Info: osm.Info{ID: 500, Version: 2, Changeset: 51, Timestamp: at(3)}}
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), mpTags, wayMember(100, "outer")),
		del,
	}, []Snapshot{
		lineSnap(100, 10, 1, sq(0, 0, 10)),
		lineSnap(100, 60, 5, sq(0, 0, 12)),
	})
	assert.Empty(t, oms)
	require.Len(t, snaps, 2, "member edit after the relation was deleted does not trigger")
	assert.False(t, snaps[1].Visible)
	assert.Nil(t, snaps[1].Geometry)
	assert.Equal(t, mpTags, snaps[1].Tags)
}

func TestAssembleRelationsSkipsOtherTypes(t *testing.T) {
	snaps, oms := assembleRels(t, []osm.Relation{
		relation(500, 1, 50, at(2), osm.Tags{"type": "route"}, wayMember(100, "")),
	}, []Snapshot{lineSnap(100, 10, 1, sq(0, 0, 10))})
	assert.Empty(t, snaps)
	assert.Empty(t, oms)
}
