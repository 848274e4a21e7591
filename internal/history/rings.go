package history

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// orient：将环调整为指定方向（外环逆时针、内环顺时针）
func orient(r orb.Ring, o orb.Orientation) {
	if r.Orientation() != o {
		r.Reverse()
	}
}

// 文档注释：将成员路径首尾相接拼成闭合环
// 背景：多面关系的一个环常被拆分到多条路径中，需按端点匹配顺接，必要时反转方向。
// 约束：贪心匹配，结果与输入顺序相关但对同一输入确定；无法闭合或点数不足 4 时返回 ErrUnclosedRing。
func joinRings(parts []orb.LineString) ([]orb.Ring, error) {
	var rings []orb.Ring
	var pool []orb.LineString
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		if len(p) >= 4 && p[0].Equal(p[len(p)-1]) {
			rings = append(rings, append(orb.Ring(nil), p...))
			continue
		}
		pool = append(pool, p)
	}
	for len(pool) > 0 {
		cur := append(orb.LineString(nil), pool[0]...)
		pool = pool[1:]
		for !cur[0].Equal(cur[len(cur)-1]) {
			i, next := findConnecting(pool, cur[len(cur)-1])
			if i < 0 {
				return nil, fmt.Errorf("%w: open end at %v", ErrUnclosedRing, cur[len(cur)-1])
			}
			pool = append(pool[:i], pool[i+1:]...)
			cur = append(cur, next[1:]...)
		}
		if len(cur) < 4 {
			return nil, fmt.Errorf("%w: %d points", ErrUnclosedRing, len(cur))
		}
		rings = append(rings, orb.Ring(cur))
	}
	return rings, nil
}

// findConnecting：查找以 end 为起点或终点的片段，返回按 end 起始方向的副本
func findConnecting(pool []orb.LineString, end orb.Point) (int, orb.LineString) {
	for i, p := range pool {
		if p[0].Equal(end) {
			return i, p
		}
		if p[len(p)-1].Equal(end) {
			rev := append(orb.LineString(nil), p...)
			rev.Reverse()
			return i, rev
		}
	}
	return -1, nil
}

// ringContains：outer 是否包含 inner（取 inner 中不在 outer 顶点上的点做点入环判定）
func ringContains(outer, inner orb.Ring) bool {
	ob := outer.Bound()
	ib := inner.Bound()
	if !ob.Contains(ib.Min) || !ob.Contains(ib.Max) {
		return false
	}
	vertices := make(map[orb.Point]struct{}, len(outer))
	for _, p := range outer {
		vertices[p] = struct{}{}
	}
	for _, p := range inner {
		if _, shared := vertices[p]; shared {
			continue
		}
		return planar.RingContains(outer, p)
	}
	return false
}

func ringArea(r orb.Ring) float64 { return math.Abs(planar.Area(r)) }

// 文档注释：由外环/内环成员组装多面
// 背景：优先使用成员声明的角色；角色缺失、未知或内环不落在任何外环内时，按包含深度重新分类（偶数层为外环）。
// 约束：每个内环挂到包含它的面积最小的外环；没有外环返回 ErrNoOuterRing；单个外环返回 Polygon，否则 MultiPolygon。
func buildMultipolygon(outerParts, innerParts, unknownParts []orb.LineString) (orb.Geometry, error) {
	if len(unknownParts) == 0 {
		outers, err1 := joinRings(outerParts)
		inners, err2 := joinRings(innerParts)
		if err1 == nil && err2 == nil && len(outers) > 0 && allContained(outers, inners) {
			return assemblePolygons(outers, inners), nil
		}
	}
	all := make([]orb.LineString, 0, len(outerParts)+len(innerParts)+len(unknownParts))
	all = append(all, outerParts...)
	all = append(all, innerParts...)
	all = append(all, unknownParts...)
	rings, err := joinRings(all)
	if err != nil {
		return nil, err
	}
	var outers, inners []orb.Ring
	for i, r := range rings {
		depth := 0
		for j, other := range rings {
			if i != j && ringContains(other, r) {
				depth++
			}
		}
		if depth%2 == 0 {
			outers = append(outers, r)
		} else {
			inners = append(inners, r)
		}
	}
	if len(outers) == 0 {
		return nil, ErrNoOuterRing
	}
	return assemblePolygons(outers, inners), nil
}

func allContained(outers, inners []orb.Ring) bool {
	for _, in := range inners {
		ok := false
		for _, out := range outers {
			if ringContains(out, in) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func assemblePolygons(outers, inners []orb.Ring) orb.Geometry {
	polys := make([]orb.Polygon, len(outers))
	areas := make([]float64, len(outers))
	for i, r := range outers {
		orient(r, orb.CCW)
		polys[i] = orb.Polygon{r}
		areas[i] = ringArea(r)
	}
	for _, in := range inners {
		best := -1
		for i, out := range outers {
			if !ringContains(out, in) {
				continue
			}
			if best < 0 || areas[i] < areas[best] {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		orient(in, orb.CW)
		polys[best] = append(polys[best], in)
	}
	if len(polys) == 1 {
		return polys[0]
	}
	return orb.MultiPolygon(polys)
}
