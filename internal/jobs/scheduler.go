package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"osmesa/internal/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger：把 cron 内部日志转到 slog
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron_"+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron_"+msg, append([]interface{}{"err", err}, kv...)...)
}

// 文档注释：按 cron 表达式周期性运行
// 背景：上游历史日志按固定节奏追加，重建跟随其更新周期；错误由日志记录，任务继续调度。
// 约束：同一时刻最多一次运行在执行，上一次未结束时跳过本次；loc 为空时使用 UTC。
// 返回的 *cron.Cron 已启动，调用方在退出时 Stop。
func Schedule(ctx context.Context, spec string, loc *time.Location, job *Job) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{l: logger.L()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(spec, func() {
		l := logger.L()
		l.Info("schedule_fire", "spec", spec)
		if _, err := job.Run(ctx); err != nil {
			l.Error("schedule_run_error", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: bad cron spec %q: %w", spec, err)
	}
	c.Start()
	for _, e := range c.Entries() {
		logger.L().Info("schedule_start", "spec", spec, "next", e.Next)
	}
	return c, nil
}
