package jobs

import (
	"context"
	"path/filepath"
	"time"

	"osmesa/internal/geocode"
	"osmesa/internal/history"
	"osmesa/internal/logger"
	"osmesa/internal/ndjson"
	"osmesa/internal/store"
)

// 文档注释：Postgres 落点
// 背景：以 run_id 追加写入两张快照表与地区表，随后按保留窗口把旧运行置为 inactive。
// 约束：KeepRuns<=0 时不做保留处理。
type StoreSink struct {
	Store    *store.Store
	KeepRuns int
}

func (s *StoreSink) Name() string { return "postgres" }

func (s *StoreSink) Write(ctx context.Context, res *Result) error {
	out := res.Output
	if err := s.Store.WriteSnapshots(ctx, res.RunID, store.KindWay, out.Ways); err != nil {
		return err
	}
	if err := s.Store.WriteSnapshots(ctx, res.RunID, store.KindRelation, out.Relations); err != nil {
		return err
	}
	if err := s.Store.WriteRegions(ctx, res.RunID, store.KindWay, res.WayRegions); err != nil {
		return err
	}
	if err := s.Store.WriteRegions(ctx, res.RunID, store.KindRelation, res.RelationRegions); err != nil {
		return err
	}
	if s.KeepRuns <= 0 {
		return nil
	}
	for _, kind := range []string{store.KindWay, store.KindRelation} {
		n, err := s.Store.PruneRuns(ctx, kind, s.KeepRuns)
		if err != nil {
			return err
		}
		logger.L().Info("snapshot_prune_done", "kind", kind, "keep", s.KeepRuns, "rows", n)
	}
	return nil
}

// 文档注释：文件落点
// 背景：每次运行写到 Dir/<run_id>/ 下；路径与关系快照各一份 GeoJSON 行文件，丢弃记录单独一份。
type FileSink struct {
	Dir string
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, res *Result) error {
	dir := filepath.Join(s.Dir, res.RunID)
	if err := writeSnapshots(ctx, filepath.Join(dir, "way_snapshots.ndjson"), res.Output.Ways, res.WayRegions); err != nil {
		return err
	}
	if err := writeSnapshots(ctx, filepath.Join(dir, "relation_snapshots.ndjson"), res.Output.Relations, res.RelationRegions); err != nil {
		return err
	}
	w, err := ndjson.Create(filepath.Join(dir, "omissions.ndjson"))
	if err != nil {
		return err
	}
	for _, o := range res.Output.Omissions {
		if err := w.WriteOmission(o); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.L().Info("file_sink_done", "dir", dir)
	return nil
}

type regionKey struct {
	id      int64
	updated int64
}

func regionLookup(tags []geocode.RegionTag) map[regionKey][]string {
	m := make(map[regionKey][]string)
	for _, t := range tags {
		k := regionKey{t.ID, t.Updated.UnixNano()}
		m[k] = append(m[k], t.Code)
	}
	return m
}

func writeSnapshots(ctx context.Context, path string, snaps []history.Snapshot, tags []geocode.RegionTag) error {
	regions := regionLookup(tags)
	w, err := ndjson.Create(path)
	if err != nil {
		return err
	}
	t0 := time.Now()
	for i := range snaps {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				w.Close()
				return err
			}
		}
		s := &snaps[i]
		if err := w.WriteSnapshot(s, regions[regionKey{s.ID, s.Updated.UnixNano()}]); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.L().Debug("file_sink_written", "path", path, "rows", w.Count(), "duration_ms", time.Since(t0).Milliseconds())
	return nil
}
