package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/dao"
)

func newRun(status run.Status) *run.Run {
	aRun := run.New("sub", window.MustNew(window.Range(0, 4)), strategy.Static, 0, 2)
	aRun.Start()
	aRun.Append(&run.Record{Partition: window.Partition{ID: 0, Window: window.MustNew(window.Range(0, 2))}})
	aRun.Finish(status)
	return aRun
}

func TestService_SaveLoad(t *testing.T) {
	ctx := context.Background()
	srv := New()
	aRun := newRun(run.StatusCompleted)

	require.NoError(t, srv.Save(ctx, aRun))
	aRun.Partitions[0].Worker = 9

	loaded, err := srv.Load(ctx, aRun.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Partitions[0].Worker)
	loaded.Partitions[0].Worker = 7

	again, err := srv.Load(ctx, aRun.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Partitions[0].Worker)

	_, err = srv.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, srv.Save(ctx, &run.Run{}), dao.ErrInvalidID)
}

func TestService_ListDelete(t *testing.T) {
	ctx := context.Background()
	srv := New()
	completed := newRun(run.StatusCompleted)
	faulted := newRun(run.StatusFaulted)
	cancelled := newRun(run.StatusCancelled)
	for _, r := range []*run.Run{completed, faulted, cancelled} {
		require.NoError(t, srv.Save(ctx, r))
	}

	all, err := srv.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, completed.ID, all[0].ID)

	failed, err := srv.List(ctx, dao.WithStatus(string(run.StatusFaulted), string(run.StatusCancelled)))
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	require.NoError(t, srv.Delete(ctx, faulted.ID))
	assert.ErrorIs(t, srv.Delete(ctx, faulted.ID), dao.ErrNotFound)
	all, err = srv.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
