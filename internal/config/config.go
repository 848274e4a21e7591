// 包 config：批处理作业配置，统一从环境变量（含 .env）读取
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// 文档注释：作业配置
// 背景：与既有工具一致以环境变量驱动；Postgres 与 Redis 连接参数仍由 utils 读取 PG_* / REDIS_*。
// 约束：Source 为 postgres 或 file；file 模式需提供三类历史文件路径（关系可缺省）。
type Config struct {
	Source        string   `env:"HISTORY_SOURCE" envDefault:"postgres"`
	NodesPath     string   `env:"HISTORY_NODES_PATH"`
	WaysPath      string   `env:"HISTORY_WAYS_PATH"`
	RelationsPath string   `env:"HISTORY_RELATIONS_PATH"`
	Sinks         []string `env:"HISTORY_SINK" envDefault:"postgres" envSeparator:","`
	OutDir        string   `env:"HISTORY_OUT_DIR" envDefault:"data/out"`
	Workers       int      `env:"HISTORY_WORKERS" envDefault:"8"`
	Relations     bool     `env:"HISTORY_RELATIONS" envDefault:"true"`
	RegionsPath   string   `env:"REGIONS_PATH"`
	MetricsAddr   string   `env:"METRICS_ADDR"`
	Cron          string   `env:"HISTORY_CRON"`
	Timezone      string   `env:"HISTORY_TZ" envDefault:"UTC"`
	RedisEnabled  bool     `env:"REDIS_ENABLED" envDefault:"false"`
	KeepRuns      int      `env:"SNAPSHOT_KEEP_RUNS" envDefault:"3"`
}

var ErrInvalid = errors.New("config: invalid")

// Load：加载 .env（可缺失）并解析环境变量
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("config: parse env: %w", err)
	}
	return c, c.Validate()
}

// Validate：检查来源、落点与并发度
func (c Config) Validate() error {
	switch c.Source {
	case "postgres":
	case "file":
		if c.NodesPath == "" || c.WaysPath == "" {
			return fmt.Errorf("%w: file source needs HISTORY_NODES_PATH and HISTORY_WAYS_PATH", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown HISTORY_SOURCE %q", ErrInvalid, c.Source)
	}
	for _, s := range c.Sinks {
		switch strings.TrimSpace(s) {
		case "postgres", "file":
		default:
			return fmt.Errorf("%w: unknown HISTORY_SINK %q", ErrInvalid, s)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: HISTORY_TZ: %v", ErrInvalid, err)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: HISTORY_WORKERS must be positive", ErrInvalid)
	}
	return nil
}

// HasSink：是否启用指定落点
func (c Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}

// NeedsPostgres：来源或落点任一使用 Postgres
func (c Config) NeedsPostgres() bool { return c.Source == "postgres" || c.HasSink("postgres") }

// Location：调度时区
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
