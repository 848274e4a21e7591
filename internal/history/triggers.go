package history

import (
	"sort"

	"osmesa/internal/osm"
)

// 文档注释：计算需要重新组装几何的触发点
// 背景：路径几何不仅在路径自身编辑时变化，被引用的点在路径版本有效期内移动同样改变几何。
// 约束：点驱动触发按 (changeset, 路径 id) 折叠为最大版本与最大时刻（该事务的最终效果）；
// 与路径自身编辑合并并去除完全重复的行；输入需已完成有效期计算。
func ResolveTriggers(nodes []osm.Node, ways []osm.Way, ix *DependencyIndex) []Trigger {
	var derived []Trigger
	for i := range nodes {
		n := &nodes[i]
		for _, r := range ix.RefsAt(n.ID, n.Timestamp) {
			derived = append(derived, Trigger{Changeset: n.Changeset, ID: r.WayID, Version: r.WayVersion, At: n.Timestamp})
		}
	}
	direct := make([]Trigger, 0, len(ways))
	for i := range ways {
		w := &ways[i]
		direct = append(direct, Trigger{Changeset: w.Changeset, ID: w.ID, Version: w.Version, At: w.Timestamp})
	}
	return mergeTriggers(derived, direct)
}

type changesetKey struct{ changeset, id int64 }

type triggerKey struct {
	changeset, id, version int64
	at                     int64
}

// mergeTriggers：折叠依赖驱动的触发并与直接编辑合并、去重、排序
func mergeTriggers(derived, direct []Trigger) []Trigger {
	latest := make(map[changesetKey]Trigger)
	for _, t := range derived {
		k := changesetKey{t.Changeset, t.ID}
		cur, ok := latest[k]
		if !ok {
			latest[k] = t
			continue
		}
		if t.Version > cur.Version {
			cur.Version = t.Version
		}
		if t.At.After(cur.At) {
			cur.At = t.At
		}
		latest[k] = cur
	}
	seen := make(map[triggerKey]struct{}, len(direct)+len(latest))
	out := make([]Trigger, 0, len(direct)+len(latest))
	add := func(t Trigger) {
		k := triggerKey{t.Changeset, t.ID, t.Version, t.At.UnixNano()}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	for _, t := range direct {
		add(t)
	}
	for _, t := range latest {
		add(t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Changeset < b.Changeset
	})
	return out
}
