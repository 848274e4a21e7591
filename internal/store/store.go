// 包 store: Postgres 数据访问层，读取三类历史日志并写出快照流
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"osmesa/internal/geocode"
	"osmesa/internal/history"
	"osmesa/internal/logger"
	"osmesa/internal/osm"

	"github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkb"
)

// 快照种类，对应输出表
const (
	KindWay      = "way"
	KindRelation = "relation"
)

// batchSize：写入按批提交，降低锁持有与 WAL 压力
const batchSize = 1000

// Store: 数据库访问入口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func snapshotTable(kind string) (string, error) {
	switch kind {
	case KindWay:
		return "way_snapshots", nil
	case KindRelation:
		return "relation_snapshots", nil
	}
	return "", fmt.Errorf("store: unknown snapshot kind %q", kind)
}

func decodeTags(b []byte) (osm.Tags, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var t osm.Tags
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, nil
	}
	return t, nil
}

func encodeTags(t osm.Tags) ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

// LoadNodes: 读取点历史，按 (id, version) 排序
func (s *Store) LoadNodes(ctx context.Context) ([]osm.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, changeset, "timestamp", visible, lat, lon, tags, uid, "user" FROM history_nodes ORDER BY id, version`)
	if err != nil {
		return nil, fmt.Errorf("store: query nodes: %w", err)
	}
	defer rows.Close()
	var out []osm.Node
	for rows.Next() {
		var n osm.Node
		var lat, lon sql.NullFloat64
		var tags []byte
		if err := rows.Scan(&n.ID, &n.Version, &n.Changeset, &n.Timestamp, &n.Visible, &lat, &lon, &tags, &n.UID, &n.User); err != nil {
			return nil, fmt.Errorf("store: scan node: %w", err)
		}
		if lat.Valid && lon.Valid {
			n.Lat, n.Lon = &lat.Float64, &lon.Float64
		}
		if n.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("store: node %d/%d tags: %w", n.ID, n.Version, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_load_nodes", "rows", len(out))
	return out, nil
}

// LoadWays: 读取路径历史
func (s *Store) LoadWays(ctx context.Context) ([]osm.Way, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, changeset, "timestamp", visible, nds, tags, uid, "user" FROM history_ways ORDER BY id, version`)
	if err != nil {
		return nil, fmt.Errorf("store: query ways: %w", err)
	}
	defer rows.Close()
	var out []osm.Way
	for rows.Next() {
		var w osm.Way
		var tags []byte
		if err := rows.Scan(&w.ID, &w.Version, &w.Changeset, &w.Timestamp, &w.Visible, pq.Array(&w.NodeRefs), &tags, &w.UID, &w.User); err != nil {
			return nil, fmt.Errorf("store: scan way: %w", err)
		}
		if w.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("store: way %d/%d tags: %w", w.ID, w.Version, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_load_ways", "rows", len(out))
	return out, nil
}

// LoadRelations: 读取关系历史
func (s *Store) LoadRelations(ctx context.Context) ([]osm.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, changeset, "timestamp", visible, members, tags, uid, "user" FROM history_relations ORDER BY id, version`)
	if err != nil {
		return nil, fmt.Errorf("store: query relations: %w", err)
	}
	defer rows.Close()
	var out []osm.Relation
	for rows.Next() {
		var r osm.Relation
		var members, tags []byte
		if err := rows.Scan(&r.ID, &r.Version, &r.Changeset, &r.Timestamp, &r.Visible, &members, &tags, &r.UID, &r.User); err != nil {
			return nil, fmt.Errorf("store: scan relation: %w", err)
		}
		if len(members) > 0 {
			if err := json.Unmarshal(members, &r.Members); err != nil {
				return nil, fmt.Errorf("store: relation %d/%d members: %w", r.ID, r.Version, err)
			}
		}
		if r.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("store: relation %d/%d tags: %w", r.ID, r.Version, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_load_relations", "rows", len(out))
	return out, nil
}

// 文档注释：分批事务写入
// 背景：每 batchSize 行提交一次并重新准备语句；任一行失败即回滚当前批并返回错误。
// 约束：args 返回第 i 行的参数；n 为总行数。
func (s *Store) batchExec(ctx context.Context, query string, n int, args func(i int) ([]any, error)) error {
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		if err := s.execBatch(ctx, query, start, end, args); err != nil {
			return err
		}
		logger.L().Debug("db_batch_commit", "rows", end)
	}
	return nil
}

func (s *Store) execBatch(ctx context.Context, query string, start, end int, args func(i int) ([]any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := start; i < end; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// WriteSnapshots: 以 runID 写出一条快照流；几何编码为 WKB，墓碑与失效快照几何为 NULL
func (s *Store) WriteSnapshots(ctx context.Context, runID, kind string, snaps []history.Snapshot) error {
	table, err := snapshotTable(kind)
	if err != nil {
		return err
	}
	q := `INSERT INTO ` + table + `(run_id, id, geom, tags, changeset, updated, valid_until, visible, valid, major_version, minor_version)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	err = s.batchExec(ctx, q, len(snaps), func(i int) ([]any, error) {
		sn := &snaps[i]
		var geom []byte
		if sn.Geometry != nil {
			b, err := wkb.Marshal(sn.Geometry)
			if err != nil {
				return nil, fmt.Errorf("store: encode %s %d: %w", kind, sn.ID, err)
			}
			geom = b
		}
		tags, err := encodeTags(sn.Tags)
		if err != nil {
			return nil, err
		}
		return []any{runID, sn.ID, geom, tags, sn.Changeset, sn.Updated, nullableTime(sn.ValidUntil), sn.Visible, sn.Valid, sn.MajorVersion, sn.MinorVersion}, nil
	})
	if err != nil {
		return fmt.Errorf("store: write %s snapshots: %w", kind, err)
	}
	logger.L().Info("db_snapshots_written", "kind", kind, "run", runID, "rows", len(snaps))
	return nil
}

// WriteRegions: 写出地理编码结果
func (s *Store) WriteRegions(ctx context.Context, runID, kind string, tags []geocode.RegionTag) error {
	q := `INSERT INTO snapshot_regions(run_id, kind, id, updated, region) VALUES($1,$2,$3,$4,$5)`
	err := s.batchExec(ctx, q, len(tags), func(i int) ([]any, error) {
		t := tags[i]
		return []any{runID, kind, t.ID, t.Updated, t.Code}, nil
	})
	if err != nil {
		return fmt.Errorf("store: write regions: %w", err)
	}
	return nil
}

// 文档注释：快照运行的保留窗口
// 背景：每次运行以 run_id 追加一整套快照；保留最近 keep 次运行为 active，其余置为 inactive，便于回滚。
// 返回：受影响行数。
func (s *Store) PruneRuns(ctx context.Context, kind string, keep int) (int64, error) {
	table, err := snapshotTable(kind)
	if err != nil {
		return 0, err
	}
	if keep <= 0 {
		keep = 1
	}
	q := `WITH runs AS (
            SELECT run_id, max(created_at) AS last
            FROM ` + table + `
            GROUP BY run_id
          ), ranked AS (
            SELECT run_id, ROW_NUMBER() OVER(ORDER BY last DESC) AS rn
            FROM runs
          )
          UPDATE ` + table + ` s
          SET active = (r.rn <= $1)
          FROM ranked r
          WHERE s.run_id = r.run_id AND s.active <> (r.rn <= $1)`
	res, err := s.db.ExecContext(ctx, q, keep)
	if err != nil {
		return 0, fmt.Errorf("store: prune %s runs: %w", kind, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
