package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"osmesa/internal/logger"
	"osmesa/internal/metrics"
	"osmesa/internal/osm"

	"github.com/paulmach/orb"
)

// 文档注释：多面关系的历史几何组装
// 背景：关系版本在自身编辑时刻，以及其有效期内任一成员路径快照变化的时刻重新组装；
// 成员按 (类型, ref) 与路径快照时间线做 as-of 连接，未解析成员以空几何透传，再统一判定。
// 约束：
// - 仅处理 type=multipolygon / type=boundary 的关系；节点与子关系成员不参与成环；
// - 成员缺失、外环缺失或无法闭合时丢弃该版本在该时刻的输出，并返回 Omission（非致命）；
// - 删除版本输出墓碑快照；输出未分配次版本号，由调用方统一交给 AssignMinorVersions。
func AssembleRelations(ctx context.Context, relations []osm.Relation, waySnaps []Snapshot, workers int) ([]Snapshot, []Omission, error) {
	wayTL := NewSnapshotTimeline(waySnaps)
	byVersion := make(map[versionKey]*osm.Relation)
	var derived, direct []Trigger
	for i := range relations {
		r := &relations[i]
		if !r.Tags.IsMultipolygon() {
			continue
		}
		byVersion[versionKey{r.ID, r.Version}] = r
		direct = append(direct, Trigger{Changeset: r.Changeset, ID: r.ID, Version: r.Version, At: r.Timestamp})
		if !r.Visible {
			continue
		}
		seen := make(map[int64]struct{})
		for _, m := range r.Members {
			if m.Type != osm.TypeWay {
				continue
			}
			if _, dup := seen[m.Ref]; dup {
				continue
			}
			seen[m.Ref] = struct{}{}
			for _, s := range wayTL.Between(m.Ref, r.Timestamp, r.ValidUntil) {
				derived = append(derived, Trigger{Changeset: s.Changeset, ID: r.ID, Version: r.Version, At: s.Updated})
			}
		}
	}
	triggers := mergeTriggers(derived, direct)

	type result struct {
		snap     *Snapshot
		omission *Omission
	}
	groups, ids := groupByID(triggers, func(t *Trigger) int64 { return t.ID })
	results, err := partitionByID(ctx, workers, ids, func(id int64) ([]result, error) {
		var out []result
		for _, t := range groups[id] {
			r := byVersion[versionKey{t.ID, t.Version}]
			s, err := assembleRelation(r, t, wayTL)
			if err != nil {
				om := Omission{Kind: "relation", ID: r.ID, Version: r.Version, At: t.At, Reason: err.Error()}
				logger.L().Warn("relation_omitted", "id", r.ID, "version", r.Version, "at", t.At, "reason", om.Reason)
				metrics.SnapshotsDropped.WithLabelValues("relation", omissionLabel(err)).Inc()
				out = append(out, result{omission: &om})
				continue
			}
			out = append(out, result{snap: &s})
		}
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	var snaps []Snapshot
	var omissions []Omission
	for _, r := range results {
		if r.snap != nil {
			snaps = append(snaps, *r.snap)
		} else {
			omissions = append(omissions, *r.omission)
		}
	}
	sortSnapshots(snaps)
	sort.Slice(omissions, func(i, j int) bool {
		a, b := omissions[i], omissions[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		return a.Version < b.Version
	})
	return snaps, omissions, nil
}

// relPart：成员与其 as-of 解析结果，ring 为 nil 表示未解析
type relPart struct {
	ref  int64
	role string
	ring orb.LineString
}

func assembleRelation(r *osm.Relation, t Trigger, wayTL *SnapshotTimeline) (Snapshot, error) {
	snap := Snapshot{
		ID:           r.ID,
		Tags:         r.Tags,
		Changeset:    t.Changeset,
		Updated:      t.At,
		Visible:      r.Visible,
		Valid:        true,
		MajorVersion: r.Version,
	}
	if !r.Visible {
		return snap, nil
	}
	var parts []relPart
	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		p := relPart{ref: m.Ref, role: m.Role}
		if s, ok := wayTL.At(m.Ref, t.At); ok {
			p.ring = memberLine(s)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return Snapshot{}, ErrNoOuterRing
	}
	var outer, inner, unknown []orb.LineString
	for _, p := range parts {
		if p.ring == nil {
			return Snapshot{}, fmt.Errorf("%w: way %d", ErrMissingMember, p.ref)
		}
		switch p.role {
		case "outer":
			outer = append(outer, p.ring)
		case "inner":
			inner = append(inner, p.ring)
		default:
			unknown = append(unknown, p.ring)
		}
	}
	g, err := buildMultipolygon(outer, inner, unknown)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Geometry = g
	return snap, nil
}

// memberLine：路径快照中可用于成环的坐标序列；不可见、失效或无几何时返回 nil
func memberLine(s *Snapshot) orb.LineString {
	if !s.Visible || !s.Valid || s.Geometry == nil {
		return nil
	}
	switch g := s.Geometry.(type) {
	case orb.LineString:
		return g
	case orb.Polygon:
		if len(g) > 0 {
			return orb.LineString(g[0])
		}
	}
	return nil
}

func omissionLabel(err error) string {
	switch {
	case errors.Is(err, ErrMissingMember):
		return "missing_member"
	case errors.Is(err, ErrUnclosedRing):
		return "unclosed_ring"
	case errors.Is(err, ErrNoOuterRing):
		return "no_outer_ring"
	}
	return "other"
}
