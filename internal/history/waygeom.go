package history

import (
	"context"
	"sort"

	"osmesa/internal/logger"
	"osmesa/internal/metrics"
	"osmesa/internal/osm"

	"github.com/paulmach/orb"
)

// 文档注释：按触发点组装路径几何
// 背景：对每个触发 (changeset, 路径, 版本, 时刻)，按原始下标逐个取该时刻有效的点坐标并按序拼接。
// 约束：
// - 路径版本为删除时输出墓碑快照（Visible=false，无几何）；
// - 任一点在该时刻不存在或不可见时输出 Valid=false 的快照，不做部分渲染；
// - 不同坐标少于两个时丢弃并记录日志；
// - 标签声明为面且首尾坐标相同时输出面，否则输出线。
func AssembleWays(ctx context.Context, triggers []Trigger, ways []osm.Way, nodes *NodeTimeline, workers int) ([]Snapshot, error) {
	byVersion := make(map[versionKey]*osm.Way, len(ways))
	for i := range ways {
		byVersion[versionKey{ways[i].ID, ways[i].Version}] = &ways[i]
	}
	groups, ids := groupByID(triggers, func(t *Trigger) int64 { return t.ID })
	out, err := partitionByID(ctx, workers, ids, func(id int64) ([]Snapshot, error) {
		var snaps []Snapshot
		for _, t := range groups[id] {
			w, ok := byVersion[versionKey{t.ID, t.Version}]
			if !ok {
				logger.L().Warn("way_version_missing", "id", t.ID, "version", t.Version)
				continue
			}
			if s, ok := assembleWay(w, t, nodes); ok {
				snaps = append(snaps, s)
			}
		}
		return snaps, nil
	})
	if err != nil {
		return nil, err
	}
	sortSnapshots(out)
	return out, nil
}

func assembleWay(w *osm.Way, t Trigger, nodes *NodeTimeline) (Snapshot, bool) {
	snap := Snapshot{
		ID:           w.ID,
		Tags:         w.Tags,
		Changeset:    t.Changeset,
		Updated:      t.At,
		Visible:      w.Visible,
		Valid:        true,
		MajorVersion: w.Version,
	}
	if !w.Visible {
		return snap, true
	}
	coords := make(orb.LineString, len(w.NodeRefs))
	for i, nid := range w.NodeRefs {
		n, ok := nodes.At(nid, t.At)
		if !ok || !n.HasPosition() {
			snap.Valid = false
			metrics.SnapshotsInvalid.WithLabelValues("way").Inc()
			return snap, true
		}
		coords[i] = orb.Point{*n.Lon, *n.Lat}
	}
	if distinctPoints(coords) < 2 {
		logger.L().Debug("way_degenerate", "id", w.ID, "version", w.Version, "at", t.At)
		metrics.SnapshotsDropped.WithLabelValues("way", "degenerate").Inc()
		return Snapshot{}, false
	}
	if w.Tags.IsArea() && len(coords) >= 4 && coords[0].Equal(coords[len(coords)-1]) {
		ring := orb.Ring(coords)
		orient(ring, orb.CCW)
		snap.Geometry = orb.Polygon{ring}
		return snap, true
	}
	snap.Geometry = coords
	return snap, true
}

func distinctPoints(ls []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(ls))
	for _, p := range ls {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// sortSnapshots：按 (id, updated, major, changeset) 排序
func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		a, b := &s[i], &s[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.Updated.Equal(b.Updated) {
			return a.Updated.Before(b.Updated)
		}
		if a.MajorVersion != b.MajorVersion {
			return a.MajorVersion < b.MajorVersion
		}
		return a.Changeset < b.Changeset
	})
}
