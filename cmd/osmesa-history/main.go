// 程序入口：读取配置、初始化依赖并执行历史重建（单次或按 cron 周期）
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"osmesa/internal/checkpoint"
	"osmesa/internal/config"
	"osmesa/internal/geocode"
	"osmesa/internal/jobs"
	"osmesa/internal/logger"
	"osmesa/internal/metrics"
	"osmesa/internal/migrate"
	"osmesa/internal/store"
	"osmesa/internal/utils"

	_ "github.com/lib/pq"
)

func main() {
	once := flag.Bool("once", false, "run a single reconstruction even when HISTORY_CRON is set")
	flag.Parse()

	l := logger.Setup()
	cfg, err := config.Load(".env", filepath.Join("data", "env", ".env"))
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_ok", "source", cfg.Source, "sinks", cfg.Sinks, "workers", cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := &jobs.Job{Workers: cfg.Workers, Relations: cfg.Relations}

	if cfg.NeedsPostgres() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		l.Info("db_ping_ok")
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st := store.AttachDB(db)
		if cfg.Source == "postgres" {
			job.Source = &jobs.StoreSource{Store: st, Relations: cfg.Relations}
		}
		if cfg.HasSink("postgres") {
			job.Sinks = append(job.Sinks, &jobs.StoreSink{Store: st, KeepRuns: cfg.KeepRuns})
		}
	}
	if cfg.Source == "file" {
		job.Source = &jobs.FileSource{NodesPath: cfg.NodesPath, WaysPath: cfg.WaysPath, RelationsPath: cfg.RelationsPath}
	}
	if cfg.HasSink("file") {
		job.Sinks = append(job.Sinks, &jobs.FileSink{Dir: cfg.OutDir})
	}

	if cfg.RegionsPath != "" {
		ix, err := geocode.LoadIndex(cfg.RegionsPath)
		if err != nil {
			l.Error("geocode_load_error", "err", err)
			os.Exit(1)
		}
		job.Regions = ix
	}

	if cfg.RedisEnabled {
		rc := utils.OpenRedisFromEnv()
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			job.NewRecorder = func(runID string) jobs.RunRecorder {
				return checkpoint.New(rc, runID, 0)
			}
		}
	} else {
		l.Info("redis_disabled")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           logger.AccessMiddleware(l)(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			l.Info("metrics_listen", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Error("metrics_listen_error", "err", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if cfg.Cron == "" || *once {
		if _, err := job.Run(ctx); err != nil {
			l.Error("run_error", "err", err)
			os.Exit(1)
		}
		return
	}
	c, err := jobs.Schedule(ctx, cfg.Cron, cfg.Location(), job)
	if err != nil {
		l.Error("schedule_error", "err", err)
		os.Exit(1)
	}
	<-ctx.Done()
	l.Info("shutdown")
	<-c.Stop().Done()
}
