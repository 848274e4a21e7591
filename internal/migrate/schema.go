package migrate

import (
	"database/sql"

	"osmesa/internal/logger"
)

// 背景：首次运行自动创建历史输入表与快照输出表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；输入表以 (id, version) 为主键，保证追加写幂等
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history_nodes (
            id BIGINT NOT NULL,
            version BIGINT NOT NULL,
            changeset BIGINT NOT NULL,
            "timestamp" TIMESTAMPTZ NOT NULL,
            visible BOOLEAN NOT NULL,
            lat DOUBLE PRECISION,
            lon DOUBLE PRECISION,
            tags JSONB NOT NULL DEFAULT '{}',
            uid BIGINT NOT NULL DEFAULT 0,
            "user" TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (id, version)
        )`,
		`CREATE TABLE IF NOT EXISTS history_ways (
            id BIGINT NOT NULL,
            version BIGINT NOT NULL,
            changeset BIGINT NOT NULL,
            "timestamp" TIMESTAMPTZ NOT NULL,
            visible BOOLEAN NOT NULL,
            nds BIGINT[] NOT NULL DEFAULT '{}',
            tags JSONB NOT NULL DEFAULT '{}',
            uid BIGINT NOT NULL DEFAULT 0,
            "user" TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (id, version)
        )`,
		`CREATE TABLE IF NOT EXISTS history_relations (
            id BIGINT NOT NULL,
            version BIGINT NOT NULL,
            changeset BIGINT NOT NULL,
            "timestamp" TIMESTAMPTZ NOT NULL,
            visible BOOLEAN NOT NULL,
            members JSONB NOT NULL DEFAULT '[]',
            tags JSONB NOT NULL DEFAULT '{}',
            uid BIGINT NOT NULL DEFAULT 0,
            "user" TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (id, version)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_history_ways_nds ON history_ways USING GIN (nds)`,
		`CREATE TABLE IF NOT EXISTS way_snapshots (
            run_id UUID NOT NULL,
            id BIGINT NOT NULL,
            geom BYTEA,
            tags JSONB NOT NULL DEFAULT '{}',
            changeset BIGINT NOT NULL,
            updated TIMESTAMPTZ NOT NULL,
            valid_until TIMESTAMPTZ,
            visible BOOLEAN NOT NULL,
            valid BOOLEAN NOT NULL,
            major_version BIGINT NOT NULL,
            minor_version BIGINT NOT NULL,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_way_snapshots_id_updated ON way_snapshots(run_id, id, updated)`,
		`CREATE TABLE IF NOT EXISTS relation_snapshots (LIKE way_snapshots INCLUDING DEFAULTS)`,
		`CREATE INDEX IF NOT EXISTS idx_relation_snapshots_id_updated ON relation_snapshots(run_id, id, updated)`,
		`CREATE TABLE IF NOT EXISTS snapshot_regions (
            run_id UUID NOT NULL,
            kind TEXT NOT NULL,
            id BIGINT NOT NULL,
            updated TIMESTAMPTZ NOT NULL,
            region TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_regions_run ON snapshot_regions(run_id, kind, id)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
