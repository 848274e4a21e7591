package jobs

import (
	"context"

	"osmesa/internal/history"
	"osmesa/internal/ndjson"
	"osmesa/internal/store"
)

// StoreSource：从 history_* 表读取
type StoreSource struct {
	Store     *store.Store
	Relations bool
}

func (s *StoreSource) Load(ctx context.Context) (history.Input, error) {
	var in history.Input
	var err error
	if in.Nodes, err = s.Store.LoadNodes(ctx); err != nil {
		return in, err
	}
	if in.Ways, err = s.Store.LoadWays(ctx); err != nil {
		return in, err
	}
	if s.Relations {
		if in.Relations, err = s.Store.LoadRelations(ctx); err != nil {
			return in, err
		}
	}
	return in, nil
}

// FileSource：从 NDJSON 文件读取；RelationsPath 可为空
type FileSource struct {
	NodesPath     string
	WaysPath      string
	RelationsPath string
}

func (s *FileSource) Load(ctx context.Context) (history.Input, error) {
	var in history.Input
	var err error
	if in.Nodes, err = ndjson.ReadNodes(s.NodesPath); err != nil {
		return in, err
	}
	if err := ctx.Err(); err != nil {
		return in, err
	}
	if in.Ways, err = ndjson.ReadWays(s.WaysPath); err != nil {
		return in, err
	}
	if err := ctx.Err(); err != nil {
		return in, err
	}
	in.Relations, err = ndjson.ReadRelations(s.RelationsPath)
	return in, err
}
