package store

import (
	"context"
	"encoding/json"
	"fmt"

	"osmesa/internal/osm"

	"github.com/lib/pq"
)

// 文档注释：历史日志追加导入
// 背景：输入为追加型日志，(id, version) 冲突时忽略，重复导入同一文件不会产生重复行。
// 约束：按批提交；坐标为空的点（删除版本）写入 NULL。
func (s *Store) InsertNodes(ctx context.Context, nodes []osm.Node) error {
	q := `INSERT INTO history_nodes(id, version, changeset, "timestamp", visible, lat, lon, tags, uid, "user")
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) ON CONFLICT (id, version) DO NOTHING`
	return s.batchExec(ctx, q, len(nodes), func(i int) ([]any, error) {
		n := &nodes[i]
		tags, err := encodeTags(n.Tags)
		if err != nil {
			return nil, err
		}
		var lat, lon any
		if n.Lat != nil && n.Lon != nil {
			lat, lon = *n.Lat, *n.Lon
		}
		return []any{n.ID, n.Version, n.Changeset, n.Timestamp, n.Visible, lat, lon, tags, n.UID, n.User}, nil
	})
}

func (s *Store) InsertWays(ctx context.Context, ways []osm.Way) error {
	q := `INSERT INTO history_ways(id, version, changeset, "timestamp", visible, nds, tags, uid, "user")
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (id, version) DO NOTHING`
	return s.batchExec(ctx, q, len(ways), func(i int) ([]any, error) {
		w := &ways[i]
		tags, err := encodeTags(w.Tags)
		if err != nil {
			return nil, err
		}
		return []any{w.ID, w.Version, w.Changeset, w.Timestamp, w.Visible, pq.Array(w.NodeRefs), tags, w.UID, w.User}, nil
	})
}

func (s *Store) InsertRelations(ctx context.Context, relations []osm.Relation) error {
	q := `INSERT INTO history_relations(id, version, changeset, "timestamp", visible, members, tags, uid, "user")
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (id, version) DO NOTHING`
	return s.batchExec(ctx, q, len(relations), func(i int) ([]any, error) {
		r := &relations[i]
		tags, err := encodeTags(r.Tags)
		if err != nil {
			return nil, err
		}
		members := r.Members
		if members == nil {
			members = []osm.Member{}
		}
		mb, err := json.Marshal(members)
		if err != nil {
			return nil, fmt.Errorf("store: relation %d members: %w", r.ID, err)
		}
		return []any{r.ID, r.Version, r.Changeset, r.Timestamp, r.Visible, mb, tags, r.UID, r.User}, nil
	})
}
