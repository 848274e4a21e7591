// 包 jobs：一次完整的历史重建运行（读取 → 重建 → 地理编码 → 写出），以及定时调度
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"osmesa/internal/geocode"
	"osmesa/internal/history"
	"osmesa/internal/logger"
	"osmesa/internal/metrics"

	"github.com/google/uuid"
)

// Source：三类历史日志的来源
type Source interface {
	Load(ctx context.Context) (history.Input, error)
}

// Sink：快照流的落点
type Sink interface {
	Name() string
	Write(ctx context.Context, res *Result) error
}

// RunRecorder：在 history.Recorder 之外登记运行的起止
type RunRecorder interface {
	history.Recorder
	Start(ctx context.Context) error
	Finish(ctx context.Context, runErr error) error
}

// Result：一次运行的全部产出
type Result struct {
	RunID           string
	Output          *history.Output
	WayRegions      []geocode.RegionTag
	RelationRegions []geocode.RegionTag
}

// Job：运行所需的依赖集合；Regions 与 NewRecorder 可为空
type Job struct {
	Source      Source
	Sinks       []Sink
	Regions     *geocode.Index
	Workers     int
	Relations   bool
	NewRecorder func(runID string) RunRecorder
}

// 文档注释：执行一次重建
// 背景：每次运行分配新的 run_id，写出端以 run_id 追加，不覆盖历史运行。
// 约束：任一落点失败即返回错误；运行状态与耗时计入指标，记录器存在时登记起止。
func (j *Job) Run(ctx context.Context) (res *Result, err error) {
	if j.Source == nil {
		return nil, errors.New("jobs: no source")
	}
	runID := uuid.NewString()
	l := logger.L().With("run", runID)
	t0 := time.Now()
	var rec RunRecorder
	if j.NewRecorder != nil {
		rec = j.NewRecorder(runID)
		if err := rec.Start(ctx); err != nil {
			l.Error("run_checkpoint_error", "err", err)
			rec = nil
		}
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RunsTotal.WithLabelValues(status).Inc()
		metrics.RunDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
		if rec != nil {
			if ferr := rec.Finish(context.WithoutCancel(ctx), err); ferr != nil {
				l.Error("run_checkpoint_error", "err", ferr)
			}
		}
	}()

	l.Info("run_start", "workers", j.Workers, "relations", j.Relations, "sinks", len(j.Sinks))
	in, err := j.Source.Load(ctx)
	if err != nil {
		l.Error("run_load_error", "err", err)
		return nil, fmt.Errorf("jobs: load: %w", err)
	}
	l.Info("run_loaded", "nodes", len(in.Nodes), "ways", len(in.Ways), "relations", len(in.Relations))

	opts := []history.Option{history.WithWorkers(j.Workers), history.WithRelations(j.Relations)}
	if rec != nil {
		opts = append(opts, history.WithRecorder(rec))
	}
	out, err := history.New(opts...).Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("jobs: reconstruct: %w", err)
	}
	res = &Result{RunID: runID, Output: out}

	if j.Regions != nil {
		if res.WayRegions, err = j.Regions.TagSnapshots(ctx, out.Ways, j.Workers); err != nil {
			return nil, fmt.Errorf("jobs: geocode ways: %w", err)
		}
		if res.RelationRegions, err = j.Regions.TagSnapshots(ctx, out.Relations, j.Workers); err != nil {
			return nil, fmt.Errorf("jobs: geocode relations: %w", err)
		}
		l.Info("run_geocoded", "way_tags", len(res.WayRegions), "relation_tags", len(res.RelationRegions))
	}

	for _, s := range j.Sinks {
		if err := s.Write(ctx, res); err != nil {
			l.Error("run_sink_error", "sink", s.Name(), "err", err)
			return nil, fmt.Errorf("jobs: sink %s: %w", s.Name(), err)
		}
		metrics.SnapshotsWritten.WithLabelValues(s.Name(), "way").Add(float64(len(out.Ways)))
		metrics.SnapshotsWritten.WithLabelValues(s.Name(), "relation").Add(float64(len(out.Relations)))
	}
	l.Info("run_done",
		"way_snapshots", len(out.Ways),
		"relation_snapshots", len(out.Relations),
		"omissions", len(out.Omissions),
		"duration_ms", time.Since(t0).Milliseconds())
	return res, nil
}
