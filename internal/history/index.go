package history

import (
	"time"

	"osmesa/internal/osm"
)

// WayRef：某个路径版本对点的引用，携带该路径版本的有效期
type WayRef struct {
	WayID      int64
	WayVersion int64
	ValidFrom  time.Time
	ValidUntil *time.Time
	// Positions：点在路径引用序列中的全部下标（重复引用如闭合环首尾）
	Positions []int
}

// Contains：t 是否落在 [ValidFrom, ValidUntil) 内
func (r WayRef) Contains(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || t.Before(*r.ValidUntil)
}

// 文档注释：点 -> 引用它的路径版本 反向索引
// 背景：点移动会改变所有引用它的路径几何；触发器计算需按点 id 找到当时有效的路径版本。
// 约束：构建后只读，可被多个分片并发读取；同一 (路径, 版本, 点) 只保留一条，下标合并到 Positions。
type DependencyIndex struct {
	byNode map[int64][]WayRef
}

// BuildDependencyIndex：展开每个路径版本的点引用序列构建索引；输入需已完成有效期计算
func BuildDependencyIndex(ways []osm.Way) *DependencyIndex {
	ix := &DependencyIndex{byNode: make(map[int64][]WayRef)}
	for i := range ways {
		w := &ways[i]
		seen := make(map[int64]int, len(w.NodeRefs))
		for pos, nid := range w.NodeRefs {
			if at, ok := seen[nid]; ok {
				refs := ix.byNode[nid]
				refs[at].Positions = append(refs[at].Positions, pos)
				continue
			}
			seen[nid] = len(ix.byNode[nid])
			ix.byNode[nid] = append(ix.byNode[nid], WayRef{
				WayID:      w.ID,
				WayVersion: w.Version,
				ValidFrom:  w.Timestamp,
				ValidUntil: w.ValidUntil,
				Positions:  []int{pos},
			})
		}
	}
	return ix
}

// Refs：引用该点的全部路径版本
func (ix *DependencyIndex) Refs(nodeID int64) []WayRef { return ix.byNode[nodeID] }

// RefsAt：引用该点且在 t 时刻有效的路径版本
func (ix *DependencyIndex) RefsAt(nodeID int64, t time.Time) []WayRef {
	var out []WayRef
	for _, r := range ix.byNode[nodeID] {
		if r.Contains(t) {
			out = append(out, r)
		}
	}
	return out
}

// Len：被引用的不同点数量
func (ix *DependencyIndex) Len() int { return len(ix.byNode) }
