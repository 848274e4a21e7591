package history

import (
	"sort"

	"osmesa/internal/osm"
)

// 文档注释：计算每个版本的有效期并修复删除版本的标签
// 背景：validUntil(v) = timestamp(v+1)；删除版本通常不带标签，若不回填，按时刻查标签会得到空集。
// 约束：输入不被修改；已存在的 ValidUntil 原样保留（幂等）；输出按 (id, version) 排序。
func assignValidity[T any, PT interface {
	*T
	Meta() *osm.Info
}](rows []T, onDelete func(PT)) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := PT(&out[i]).Meta(), PT(&out[j]).Meta()
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Version < b.Version
	})
	for i := range out {
		cur := PT(&out[i]).Meta()
		if cur.ValidUntil == nil && i+1 < len(out) {
			if next := PT(&out[i+1]).Meta(); next.ID == cur.ID {
				t := next.Timestamp
				cur.ValidUntil = &t
			}
		}
		if cur.Visible {
			continue
		}
		if len(cur.Tags) == 0 && i > 0 {
			if prev := PT(&out[i-1]).Meta(); prev.ID == cur.ID {
				cur.Tags = prev.Tags.Clone()
			}
		}
		if onDelete != nil {
			onDelete(PT(&out[i]))
		}
	}
	return out
}

// PreprocessNodes：点版本有效期；删除版本坐标置空
func PreprocessNodes(nodes []osm.Node) []osm.Node {
	return assignValidity(nodes, func(n *osm.Node) {
		n.Lat = nil
		n.Lon = nil
	})
}

// PreprocessWays：路径版本有效期
func PreprocessWays(ways []osm.Way) []osm.Way {
	return assignValidity[osm.Way](ways, nil)
}

// PreprocessRelations：关系版本有效期
func PreprocessRelations(relations []osm.Relation) []osm.Relation {
	return assignValidity[osm.Relation](relations, nil)
}
