// 数据导入工具：把 NDJSON 历史日志追加写入 PostgreSQL 的 history_* 表
package main

import (
	"context"
	"flag"
	"os"

	"osmesa/internal/logger"
	"osmesa/internal/migrate"
	"osmesa/internal/ndjson"
	"osmesa/internal/store"
	"osmesa/internal/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// 文档注释：历史日志导入
// 背景：上游导出为三份按行 JSON（点/路径/关系），重复导入以 (id, version) 去重；
// 路径参数缺省时读取 HISTORY_*_PATH 环境变量。
// 约束：任一文件解析失败即退出，不做部分导入后的纠错。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	nodes := flag.String("nodes", os.Getenv("HISTORY_NODES_PATH"), "node history ndjson")
	ways := flag.String("ways", os.Getenv("HISTORY_WAYS_PATH"), "way history ndjson")
	relations := flag.String("relations", os.Getenv("HISTORY_RELATIONS_PATH"), "relation history ndjson")
	flag.Parse()
	if *nodes == "" && *ways == "" && *relations == "" {
		l.Error("import_paths_missing")
		os.Exit(1)
	}

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	ctx := context.Background()

	if *nodes != "" {
		rows, err := ndjson.ReadNodes(*nodes)
		if err == nil {
			err = st.InsertNodes(ctx, rows)
		}
		if err != nil {
			l.Error("import_nodes_error", "err", err)
			os.Exit(1)
		}
		l.Info("import_nodes_done", "rows", len(rows))
	}
	if *ways != "" {
		rows, err := ndjson.ReadWays(*ways)
		if err == nil {
			err = st.InsertWays(ctx, rows)
		}
		if err != nil {
			l.Error("import_ways_error", "err", err)
			os.Exit(1)
		}
		l.Info("import_ways_done", "rows", len(rows))
	}
	if *relations != "" {
		rows, err := ndjson.ReadRelations(*relations)
		if err == nil {
			err = st.InsertRelations(ctx, rows)
		}
		if err != nil {
			l.Error("import_relations_error", "err", err)
			os.Exit(1)
		}
		l.Info("import_relations_done", "rows", len(rows))
	}
}
