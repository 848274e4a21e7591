package history

import (
	"time"

	"osmesa/internal/osm"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return epoch.Add(time.Duration(h) * time.Hour) }

func tp(t time.Time) *time.Time { return &t }

func fp(v float64) *float64 { return &v }

func node(id, version, changeset int64, ts time.Time, lon, lat float64, tags osm.Tags) osm.Node {
	return osm.Node{
		Info: osm.Info{ID: id, Version: version, Changeset: changeset, Timestamp: ts, Visible: true, Tags: tags},
		Lat:  fp(lat),
		Lon:  fp(lon),
	}
}

func deletedNode(id, version, changeset int64, ts time.Time) osm.Node {
	return osm.Node{Info: osm.Info{ID: id, Version: version, Changeset: changeset, Timestamp: ts}}
}

func way(id, version, changeset int64, ts time.Time, refs []int64, tags osm.Tags) osm.Way {
	return osm.Way{
		Info:     osm.Info{ID: id, Version: version, Changeset: changeset, Timestamp: ts, Visible: true, Tags: tags},
		NodeRefs: refs,
	}
}

func relation(id, version, changeset int64, ts time.Time, tags osm.Tags, members ...osm.Member) osm.Relation {
	return osm.Relation{
		Info:    osm.Info{ID: id, Version: version, Changeset: changeset, Timestamp: ts, Visible: true, Tags: tags},
		Members: members,
	}
}

func wayMember(ref int64, role string) osm.Member {
	return osm.Member{Type: osm.TypeWay, Ref: ref, Role: role}
}

// square：以 (x, y) 为左下角、边长 size 的点序列，首尾闭合
func squareNodes(firstID, changeset int64, ts time.Time, x, y, size float64) ([]osm.Node, []int64) {
	pts := [][2]float64{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}}
	nodes := make([]osm.Node, 0, 4)
	refs := make([]int64, 0, 5)
	for i, p := range pts {
		id := firstID + int64(i)
		nodes = append(nodes, node(id, 1, changeset, ts, p[0], p[1], nil))
		refs = append(refs, id)
	}
	refs = append(refs, firstID)
	return nodes, refs
}
