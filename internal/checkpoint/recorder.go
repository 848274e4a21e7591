// 包 checkpoint：将每次运行的阶段统计与关系丢弃记录写入 Redis，供运维排查
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"osmesa/internal/history"
	"osmesa/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "osmesa:history"
	runsKey   = keyPrefix + ":runs"
	maxRuns   = 50
)

// StageStat：单阶段的输出行数与耗时
type StageStat struct {
	Rows       int   `json:"rows"`
	DurationMs int64 `json:"duration_ms"`
}

// 文档注释：基于 Redis 的运行记录器
// 背景：批处理没有交互式错误界面，丢弃的关系版本与阶段耗时需要一个可查询的落点；
// 键按 run_id 隔离，并设置过期时间避免无限增长。
// 约束：实现 history.Recorder；写入失败作为基础设施错误返回。
type Recorder struct {
	rc    *redis.Client
	runID string
	ttl   time.Duration
}

func New(rc *redis.Client, runID string, ttl time.Duration) *Recorder {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Recorder{rc: rc, runID: runID, ttl: ttl}
}

func (r *Recorder) key(suffix string) string {
	return keyPrefix + ":run:" + r.runID + ":" + suffix
}

// Start：登记运行并记录开始时间
func (r *Recorder) Start(ctx context.Context) error {
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, r.key("meta"), "status", "running", "started_at", time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, r.key("meta"), r.ttl)
	pipe.LPush(ctx, runsKey, r.runID)
	pipe.LTrim(ctx, runsKey, 0, maxRuns-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint: start %s: %w", r.runID, err)
	}
	return nil
}

func (r *Recorder) RecordStage(ctx context.Context, stage string, rows int, dur time.Duration) error {
	b, err := json.Marshal(StageStat{Rows: rows, DurationMs: dur.Milliseconds()})
	if err != nil {
		return err
	}
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, r.key("stages"), stage, string(b))
	pipe.Expire(ctx, r.key("stages"), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint: record stage %s: %w", stage, err)
	}
	return nil
}

func (r *Recorder) RecordOmissions(ctx context.Context, oms []history.Omission) error {
	if len(oms) == 0 {
		return nil
	}
	vals := make([]any, 0, len(oms))
	for _, o := range oms {
		b, err := json.Marshal(o)
		if err != nil {
			return err
		}
		vals = append(vals, string(b))
	}
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, r.key("omissions"), vals...)
	pipe.Expire(ctx, r.key("omissions"), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint: record omissions: %w", err)
	}
	logger.L().Debug("checkpoint_omissions", "run", r.runID, "count", len(oms))
	return nil
}

// Finish：记录运行结束状态；runErr 非空时状态为 failed 并保存错误文本
func (r *Recorder) Finish(ctx context.Context, runErr error) error {
	status, msg := "done", ""
	if runErr != nil {
		status, msg = "failed", runErr.Error()
	}
	err := r.rc.HSet(ctx, r.key("meta"), "status", status, "error", msg, "finished_at", time.Now().UTC().Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("checkpoint: finish %s: %w", r.runID, err)
	}
	return nil
}

// Status：运行状态（running/done/failed）
func (r *Recorder) Status(ctx context.Context) (string, error) {
	return r.rc.HGet(ctx, r.key("meta"), "status").Result()
}

// Stages：读取全部阶段统计
func (r *Recorder) Stages(ctx context.Context) (map[string]StageStat, error) {
	raw, err := r.rc.HGetAll(ctx, r.key("stages")).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]StageStat, len(raw))
	for k, v := range raw {
		var s StageStat
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, fmt.Errorf("checkpoint: stage %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

// Omissions：读取全部丢弃记录（按写入顺序）
func (r *Recorder) Omissions(ctx context.Context) ([]history.Omission, error) {
	raw, err := r.rc.LRange(ctx, r.key("omissions"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]history.Omission, 0, len(raw))
	for _, v := range raw {
		var o history.Omission
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// RecentRuns：最近登记的运行 id，最新在前
func RecentRuns(ctx context.Context, rc *redis.Client, n int64) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	return rc.LRange(ctx, runsKey, 0, n-1).Result()
}
