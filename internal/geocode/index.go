// 包 geocode：按国家/地区边界为快照几何打标签，作为重建结果的下游消费方
package geocode

import (
	"context"
	"errors"
	"sort"
	"time"

	"osmesa/internal/history"
	"osmesa/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"
)

var ErrNoBoundaries = errors.New("geocode: no boundary polygons loaded")

// Region：一个地区编码及其边界（多面与洞以 orb.Polygon 的环列表表达，第一环为外环）
type Region struct {
	Code  string
	Polys []orb.Polygon
	Bound orb.Bound
}

// RegionTag：一条 (快照, 地区) 结果
type RegionTag struct {
	ID      int64
	Updated time.Time
	Code    string
}

// 文档注释：只读边界索引
// 背景：每个进程加载一次，供多个协程并发查询；候选先按外包框过滤，再做点入多边形判定。
// 约束：构建后不可修改；相交判定以顶点包含近似（几何顶点落入边界，或边界顶点落入面状几何），
// 仅边相交而无顶点互含的情况不计入。
type Index struct {
	regions []Region
}

// NewIndex：由地区列表构建索引，计算外包框
func NewIndex(regions []Region) (*Index, error) {
	if len(regions) == 0 {
		return nil, ErrNoBoundaries
	}
	ix := &Index{regions: make([]Region, len(regions))}
	for i, r := range regions {
		b := orb.Bound{}
		for j, p := range r.Polys {
			if j == 0 {
				b = p.Bound()
				continue
			}
			b = b.Union(p.Bound())
		}
		r.Bound = b
		ix.regions[i] = r
	}
	return ix, nil
}

func (ix *Index) Len() int { return len(ix.regions) }

// Regions：与几何相交的全部地区编码，按编码排序
func (ix *Index) Regions(g orb.Geometry) []string {
	if g == nil {
		return nil
	}
	gb := g.Bound()
	pts := vertices(g)
	areal := g.Dimensions() == 2
	var out []string
	for i := range ix.regions {
		r := &ix.regions[i]
		if !r.Bound.Intersects(gb) {
			continue
		}
		if r.intersects(g, pts, areal) {
			out = append(out, r.Code)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Region) intersects(g orb.Geometry, pts []orb.Point, areal bool) bool {
	for _, p := range pts {
		if !r.Bound.Contains(p) {
			continue
		}
		for _, poly := range r.Polys {
			if planar.PolygonContains(poly, p) {
				return true
			}
		}
	}
	if !areal {
		return false
	}
	for _, poly := range r.Polys {
		if len(poly) == 0 || len(poly[0]) == 0 {
			continue
		}
		if contains(g, poly[0][0]) {
			return true
		}
	}
	return false
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	}
	return false
}

func vertices(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	case orb.LineString:
		return v
	case orb.Ring:
		return v
	case orb.MultiLineString:
		var out []orb.Point
		for _, ls := range v {
			out = append(out, ls...)
		}
		return out
	case orb.Polygon:
		var out []orb.Point
		for _, r := range v {
			out = append(out, r...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.Point
		for _, p := range v {
			out = append(out, vertices(p)...)
		}
		return out
	case orb.Collection:
		var out []orb.Point
		for _, c := range v {
			out = append(out, vertices(c)...)
		}
		return out
	}
	return nil
}

// 文档注释：并发为快照打地区标签
// 背景：快照之间互不依赖，按下标分片交给 workers 个协程；索引只读共享。
// 约束：无几何的快照（墓碑、失效）跳过；结果按 (id, updated, code) 排序。
func (ix *Index) TagSnapshots(ctx context.Context, snaps []history.Snapshot, workers int) ([]RegionTag, error) {
	if workers <= 0 {
		workers = 1
	}
	parts := make([][]RegionTag, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		shard := w
		g.Go(func() error {
			for i := shard; i < len(snaps); i += workers {
				if (i/workers)%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				s := &snaps[i]
				if s.Geometry == nil {
					continue
				}
				for _, code := range ix.Regions(s.Geometry) {
					parts[shard] = append(parts[shard], RegionTag{ID: s.ID, Updated: s.Updated, Code: code})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []RegionTag
	for _, p := range parts {
		out = append(out, p...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.Updated.Equal(b.Updated) {
			return a.Updated.Before(b.Updated)
		}
		return a.Code < b.Code
	})
	metrics.RegionTagsTotal.Add(float64(len(out)))
	return out, nil
}
