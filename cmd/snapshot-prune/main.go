package main

import (
	"context"
	"fmt"
	"os"

	"osmesa/internal/checkpoint"
	"osmesa/internal/logger"
	"osmesa/internal/store"
	"osmesa/internal/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// 文档注释：快照运行保留窗口与回滚
// 背景：每次重建以 run_id 追加一整套快照；保留最近 N 次运行为 active，其余置为 inactive。
// 回滚即把 SNAPSHOT_KEEP_RUNS 调小后重跑本工具，不删除任何行。
// 约束：REDIS_ENABLED=true 时额外打印最近登记的运行 id 便于核对。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	keep := 3
	if s := os.Getenv("SNAPSHOT_KEEP_RUNS"); s != "" {
		var n int
		_, _ = fmt.Sscanf(s, "%d", &n)
		if n > 0 {
			keep = n
		}
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.AttachDB(db)
	ctx := context.Background()
	for _, kind := range []string{store.KindWay, store.KindRelation} {
		n, err := st.PruneRuns(ctx, kind, keep)
		if err != nil {
			l.Error("snapshot_prune_error", "kind", kind, "err", err)
			os.Exit(1)
		}
		l.Info("snapshot_prune_done", "kind", kind, "keep", keep, "rows", n)
	}
	if os.Getenv("REDIS_ENABLED") == "true" {
		rc := utils.OpenRedisFromEnv()
		defer rc.Close()
		runs, err := checkpoint.RecentRuns(ctx, rc, int64(keep))
		if err != nil {
			l.Error("redis_runs_error", "err", err)
			return
		}
		l.Info("snapshot_recent_runs", "runs", runs)
	}
}
