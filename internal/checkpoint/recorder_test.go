package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"osmesa/internal/history"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	return mr, rc
}

func TestRecorderLifecycle(t *testing.T) {
	mr, rc := newRedis(t)
	ctx := context.Background()
	r := New(rc, "run-a", time.Hour)

	require.NoError(t, r.Start(ctx))
	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", status)

	require.NoError(t, r.RecordStage(ctx, "triggers", 12, 1500*time.Millisecond))
	require.NoError(t, r.RecordStage(ctx, "way_geometry", 30, 2*time.Second))
	stages, err := r.Stages(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]StageStat{
		"triggers":     {Rows: 12, DurationMs: 1500},
		"way_geometry": {Rows: 30, DurationMs: 2000},
	}, stages)

	require.NoError(t, r.Finish(ctx, nil))
	status, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", status)
	assert.Equal(t, time.Hour, mr.TTL("osmesa:history:run:run-a:stages"))
}

func TestRecorderFinishFailed(t *testing.T) {
	mr, rc := newRedis(t)
	ctx := context.Background()
	r := New(rc, "run-b", 0)
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Finish(ctx, errors.New("boom")))
	assert.Equal(t, "failed", mr.HGet("osmesa:history:run:run-b:meta", "status"))
	assert.Equal(t, "boom", mr.HGet("osmesa:history:run:run-b:meta", "error"))
}

func TestRecorderOmissions(t *testing.T) {
	_, rc := newRedis(t)
	ctx := context.Background()
	r := New(rc, "run-c", time.Hour)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	oms := []history.Omission{
		{Kind: "relation", ID: 5, Version: 1, At: at, Reason: "history: no outer ring"},
		{Kind: "relation", ID: 6, Version: 2, At: at.Add(time.Hour), Reason: "history: ring cannot be closed"},
	}
	require.NoError(t, r.RecordOmissions(ctx, nil))
	require.NoError(t, r.RecordOmissions(ctx, oms))
	got, err := r.Omissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, oms, got)
}

func TestRecentRuns(t *testing.T) {
	_, rc := newRedis(t)
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, New(rc, id, time.Hour).Start(ctx))
	}
	runs, err := RecentRuns(ctx, rc, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, runs)
}

func TestRecorderSatisfiesPipeline(t *testing.T) {
	var _ history.Recorder = (*Recorder)(nil)
}
