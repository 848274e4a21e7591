package history

import (
	"context"
	"time"

	"osmesa/internal/logger"
	"osmesa/internal/metrics"
	"osmesa/internal/osm"
)

// Input：三类实体的原始版本历史
type Input struct {
	Nodes     []osm.Node
	Ways      []osm.Way
	Relations []osm.Relation
}

// Output：路径与关系两条快照流，以及被丢弃的关系版本
type Output struct {
	Ways      []Snapshot
	Relations []Snapshot
	Omissions []Omission
}

// Recorder：阶段统计与丢弃记录的外部落点（如 Redis）；可为空
type Recorder interface {
	RecordStage(ctx context.Context, stage string, rows int, dur time.Duration) error
	RecordOmissions(ctx context.Context, oms []Omission) error
}

// Pipeline：按固定阶段顺序执行的批处理重建
type Pipeline struct {
	workers   int
	relations bool
	recorder  Recorder
}

type Option func(*Pipeline)

func WithWorkers(n int) Option { return func(p *Pipeline) { p.workers = n } }

func WithRelations(enabled bool) Option { return func(p *Pipeline) { p.relations = enabled } }

func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.recorder = r } }

func New(opts ...Option) *Pipeline {
	p := &Pipeline{workers: 8, relations: true}
	for _, o := range opts {
		o(p)
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	return p
}

// 文档注释：执行完整重建
// 背景：预处理 → 反向索引 → 触发计算 → 路径组装 → 次版本 → （可选）关系组装；
// 每个阶段都是输入全集到输出全集的纯函数，阶段之间是同步屏障。
// 约束：基础设施错误（上下文取消、Recorder 失败）直接返回；关系丢弃不视为错误。
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	var (
		nodes     []osm.Node
		ways      []osm.Way
		relations []osm.Relation
		ix        *DependencyIndex
		triggers  []Trigger
		waySnaps  []Snapshot
		out       = &Output{}
	)
	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"preprocess", func() (int, error) {
			nodes = PreprocessNodes(in.Nodes)
			ways = PreprocessWays(in.Ways)
			relations = PreprocessRelations(in.Relations)
			return len(nodes) + len(ways) + len(relations), nil
		}},
		{"dependency_index", func() (int, error) {
			ix = BuildDependencyIndex(ways)
			return ix.Len(), nil
		}},
		{"triggers", func() (int, error) {
			triggers = ResolveTriggers(nodes, ways, ix)
			return len(triggers), nil
		}},
		{"way_geometry", func() (int, error) {
			var err error
			waySnaps, err = AssembleWays(ctx, triggers, ways, NewNodeTimeline(nodes), p.workers)
			return len(waySnaps), err
		}},
		{"way_minor_versions", func() (int, error) {
			out.Ways = AssignMinorVersions(waySnaps)
			return len(out.Ways), nil
		}},
		{"relation_geometry", func() (int, error) {
			if !p.relations {
				return 0, nil
			}
			snaps, oms, err := AssembleRelations(ctx, relations, out.Ways, p.workers)
			if err != nil {
				return 0, err
			}
			out.Relations = AssignMinorVersions(snaps)
			out.Omissions = oms
			return len(out.Relations), nil
		}},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t0 := time.Now()
		rows, err := s.fn()
		if err != nil {
			logger.L().Error("stage_error", "stage", s.name, "err", err)
			return nil, err
		}
		dur := time.Since(t0)
		metrics.StageRows.WithLabelValues(s.name).Add(float64(rows))
		metrics.StageDurationMs.WithLabelValues(s.name).Observe(float64(dur.Milliseconds()))
		logger.L().Info("stage_done", "stage", s.name, "rows", rows, "duration_ms", dur.Milliseconds())
		if p.recorder != nil {
			if err := p.recorder.RecordStage(ctx, s.name, rows, dur); err != nil {
				return nil, err
			}
		}
	}
	if p.recorder != nil && len(out.Omissions) > 0 {
		if err := p.recorder.RecordOmissions(ctx, out.Omissions); err != nil {
			return nil, err
		}
	}
	return out, nil
}
