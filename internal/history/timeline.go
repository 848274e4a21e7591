package history

import (
	"sort"
	"time"

	"osmesa/internal/osm"
)

// 文档注释：点版本的按时刻查询（as-of）
// 背景：几何组装需取 t 时刻有效的点版本；按 id 聚合后对时间戳二分查找。
// 约束：构建后只读；输入需已完成有效期计算。
type NodeTimeline struct {
	byID map[int64][]osm.Node
}

func NewNodeTimeline(nodes []osm.Node) *NodeTimeline {
	tl := &NodeTimeline{byID: make(map[int64][]osm.Node)}
	for i := range nodes {
		tl.byID[nodes[i].ID] = append(tl.byID[nodes[i].ID], nodes[i])
	}
	for _, vs := range tl.byID {
		sort.Slice(vs, func(i, j int) bool { return vs[i].Version < vs[j].Version })
	}
	return tl
}

// At：返回 t 时刻有效的点版本；不存在返回 false
func (tl *NodeTimeline) At(id int64, t time.Time) (*osm.Node, bool) {
	vs := tl.byID[id]
	i := sort.Search(len(vs), func(i int) bool { return vs[i].Timestamp.After(t) })
	if i == 0 {
		return nil, false
	}
	n := &vs[i-1]
	if !n.ValidAt(t) {
		return nil, false
	}
	return n, true
}

// SnapshotTimeline：快照的按时刻查询，用于关系成员与路径几何的 as-of 连接
type SnapshotTimeline struct {
	byID map[int64][]Snapshot
}

func NewSnapshotTimeline(snaps []Snapshot) *SnapshotTimeline {
	tl := &SnapshotTimeline{byID: make(map[int64][]Snapshot)}
	for i := range snaps {
		tl.byID[snaps[i].ID] = append(tl.byID[snaps[i].ID], snaps[i])
	}
	for _, vs := range tl.byID {
		sort.Slice(vs, func(i, j int) bool { return vs[i].Updated.Before(vs[j].Updated) })
	}
	return tl
}

// At：返回 t 时刻有效的快照
func (tl *SnapshotTimeline) At(id int64, t time.Time) (*Snapshot, bool) {
	vs := tl.byID[id]
	i := sort.Search(len(vs), func(i int) bool { return vs[i].Updated.After(t) })
	if i == 0 {
		return nil, false
	}
	s := &vs[i-1]
	if s.ValidUntil != nil && !t.Before(*s.ValidUntil) {
		return nil, false
	}
	return s, true
}

// Between：Updated 落在 (from, until) 内的快照，until 为 nil 表示无上界
func (tl *SnapshotTimeline) Between(id int64, from time.Time, until *time.Time) []Snapshot {
	var out []Snapshot
	for _, s := range tl.byID[id] {
		if !s.Updated.After(from) {
			continue
		}
		if until != nil && !s.Updated.Before(*until) {
			break
		}
		out = append(out, s)
	}
	return out
}
