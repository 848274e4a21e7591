package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmesa_history_runs_total",
		Help: "Total number of reconstruction runs by status",
	}, []string{"status"})
	RunDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "osmesa_history_run_duration_ms",
		Help:    "Full run duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 30000, 60000, 300000, 900000},
	})
	StageRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmesa_history_stage_rows_total",
		Help: "Rows produced by each pipeline stage",
	}, []string{"stage"})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osmesa_history_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000, 120000},
	}, []string{"stage"})
	SnapshotsInvalid = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmesa_history_snapshots_invalid_total",
		Help: "Snapshots marked invalid because a dependency was unresolved",
	}, []string{"kind"})
	SnapshotsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmesa_history_snapshots_dropped_total",
		Help: "Snapshots dropped (degenerate ways, malformed relations)",
	}, []string{"kind", "reason"})
	SnapshotsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmesa_history_snapshots_written_total",
		Help: "Snapshots written by sink",
	}, []string{"sink", "kind"})
	RegionTagsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmesa_history_region_tags_total",
		Help: "Total (id, region) pairs produced by geocoding",
	})
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDurationMs)
	prometheus.MustRegister(StageRows)
	prometheus.MustRegister(StageDurationMs)
	prometheus.MustRegister(SnapshotsInvalid)
	prometheus.MustRegister(SnapshotsDropped)
	prometheus.MustRegister(SnapshotsWritten)
	prometheus.MustRegister(RegionTagsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：批处理进程可选暴露 /metrics，供抓取运行中的阶段进度。
func Handler() http.Handler { return promhttp.Handler() }
