package history

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// 文档注释：按实体 id 分片并行处理
// 背景：每个 id 的计算互不依赖；按 id 取模分发到固定数量的分片，分片内串行，分片间并行。
// 约束：fn 只能读取共享的只读结构；结果在全部分片结束后合并，由调用方排序以保证与分片数无关。
func partitionByID[R any](ctx context.Context, workers int, ids []int64, fn func(id int64) ([]R, error)) ([]R, error) {
	if workers <= 0 {
		workers = 1
	}
	shards := make([][]int64, workers)
	for _, id := range ids {
		s := int(uint64(id) % uint64(workers))
		shards[s] = append(shards[s], id)
	}
	results := make([][]R, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		shard := i
		if len(shards[shard]) == 0 {
			continue
		}
		g.Go(func() error {
			for n, id := range shards[shard] {
				if n%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out, err := fn(id)
				if err != nil {
					return err
				}
				results[shard] = append(results[shard], out...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]R, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// groupByID：按 id 聚合并返回有序 id 列表
func groupByID[T any](rows []T, id func(*T) int64) (map[int64][]T, []int64) {
	groups := make(map[int64][]T)
	for i := range rows {
		k := id(&rows[i])
		groups[k] = append(groups[k], rows[i])
	}
	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return groups, keys
}
