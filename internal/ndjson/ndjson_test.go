package ndjson

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"osmesa/internal/history"
	"osmesa/internal/osm"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodesFile = `{"id":1,"version":1,"changeset":10,"timestamp":"2020-01-01T00:00:00Z","visible":true,"lat":1.5,"lon":2.5,"tags":{"shop":"bakery"},"uid":7,"user":"alice"}

# deleted
{"id":1,"version":2,"changeset":11,"timestamp":"2020-01-02T00:00:00Z","visible":false,"lat":null,"lon":null,"uid":7,"user":"alice"}
`

func TestReadNodes(t *testing.T) {
	nodes, err := Read[osm.Node](strings.NewReader(nodesFile))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, 1.5, *nodes[0].Lat)
	assert.Equal(t, osm.Tags{"shop": "bakery"}, nodes[0].Tags)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), nodes[1].Timestamp.UTC())
	assert.Nil(t, nodes[1].Lat)
	assert.False(t, nodes[1].Visible)
}

func TestReadRelationMembers(t *testing.T) {
	line := `{"id":5,"version":1,"changeset":1,"timestamp":"2020-01-01T00:00:00Z","visible":true,"members":[{"type":"w","ref":100,"role":"outer"}],"tags":{"type":"multipolygon"}}`
	rels, err := Read[osm.Relation](strings.NewReader(line))
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, []osm.Member{{Type: osm.TypeWay, Ref: 100, Role: "outer"}}, rels[0].Members)
}

func TestReadReportsLine(t *testing.T) {
	_, err := Read[osm.Way](strings.NewReader("{\"id\":1,\"nds\":[1,2]}\n{not json}\n"))
	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Line)
}

func TestReadFileGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ways.ndjson.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"id":100,"version":1,"changeset":1,"timestamp":"2020-01-01T00:00:00Z","visible":true,"nds":[1,2,3,1]}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ways, err := ReadWays(path)
	require.NoError(t, err)
	require.Len(t, ways, 1)
	assert.True(t, ways[0].Closed())
}

func TestReadRelationsOptional(t *testing.T) {
	rels, err := ReadRelations("")
	require.NoError(t, err)
	assert.Nil(t, rels)
}

func TestWriterSnapshots(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	updated := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	until := updated.Add(time.Hour)
	require.NoError(t, w.WriteSnapshot(&history.Snapshot{
		ID: 100, Geometry: orb.LineString{{0, 0}, {1, 1}}, Tags: osm.Tags{"highway": "path"},
		Changeset: 10, Updated: updated, ValidUntil: &until, Visible: true, Valid: true, MajorVersion: 1, MinorVersion: 2,
	}, []string{"DE"}))
	require.NoError(t, w.WriteSnapshot(&history.Snapshot{ID: 100, Updated: until, MajorVersion: 2}, nil))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Feature", first["type"])
	geom := first["geometry"].(map[string]any)
	assert.Equal(t, "LineString", geom["type"])
	props := first["properties"].(map[string]any)
	assert.Equal(t, float64(2), props["minor_version"])
	assert.Equal(t, "2020-01-01T01:00:00Z", props["valid_until"])
	assert.Equal(t, []any{"DE"}, props["regions"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["geometry"])
	assert.Nil(t, second["properties"].(map[string]any)["valid_until"])
}

func TestCreateWritesOmissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "omissions.ndjson")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteOmission(history.Omission{Kind: "relation", ID: 5, Version: 1, Reason: "history: no outer ring"}))
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"reason":"history: no outer ring"`)
}
