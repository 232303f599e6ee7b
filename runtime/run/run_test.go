package run

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/internal/clock"
	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/service/event"
)

func frozenClock(t *testing.T, times ...time.Time) {
	t.Helper()
	i := 0
	clock.NowFunc = func() time.Time {
		ret := times[min(i, len(times)-1)]
		i++
		return ret
	}
	t.Cleanup(func() { clock.NowFunc = time.Now })
}

func TestRun_Lifecycle(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frozenClock(t, start, start.Add(3*time.Millisecond))

	w := window.MustNew(window.Range(0, 10))
	aRun := New("copy", w, strategy.Static, 0, 2)
	assert.NotEmpty(t, aRun.ID)
	assert.Equal(t, StatusRunning, aRun.Status)
	assert.False(t, aRun.Status.IsTerminal())
	assert.Zero(t, aRun.Elapsed())

	aRun.Start()
	aRun.Append(&Record{Partition: window.Partition{ID: 1, Window: window.MustNew(window.Range(5, 10))}, Worker: 1, Error: "boom"})
	aRun.Append(&Record{Partition: window.Partition{ID: 0, Window: window.MustNew(window.Range(0, 5))}})
	aRun.Finish(StatusFaulted)

	assert.True(t, aRun.Status.IsTerminal())
	assert.Equal(t, 3*time.Millisecond, aRun.Elapsed())
	dispatched := aRun.Dispatched()
	require.Len(t, dispatched, 2)
	assert.Equal(t, 0, dispatched[0].ID)
	assert.True(t, window.Covers(w, dispatched))
	require.Len(t, aRun.Failed(), 1)
	assert.Equal(t, 1, aRun.Failed()[0].Partition.ID)
	require.Len(t, aRun.Succeeded(), 1)

	ctx := aRun.Context(event.TypeRunFaulted)
	assert.Equal(t, aRun.ID, ctx.RunID)
	assert.Equal(t, "faulted", ctx.Status)
	assert.Equal(t, 3, ctx.TimeTakenMs)
}

func TestRun_Clone(t *testing.T) {
	aRun := New("copy", window.MustNew(window.Range(0, 4)), strategy.Dynamic, 0, 2)
	aRun.Append(&Record{Partition: window.Partition{ID: 0, Window: window.MustNew(window.Range(0, 4))}})
	aRun.Finish(StatusCompleted)

	cloned := aRun.Clone()
	cloned.Partitions[0].Error = errors.New("changed").Error()
	cloned.Status = StatusCancelled
	assert.Empty(t, aRun.Partitions[0].Error)
	assert.Equal(t, StatusCompleted, aRun.Status)
	assert.Nil(t, (*Run)(nil).Clone())
}

func TestRun_JSON(t *testing.T) {
	aRun := New("copy", window.MustNew(window.Range(0, 4)), strategy.Dynamic, 0, 2)
	aRun.Append(&Record{Partition: window.Partition{ID: 0, Window: window.MustNew(window.Range(0, 4))}})
	aRun.Finish(StatusCompleted)

	data, err := json.Marshal(aRun)
	require.NoError(t, err)
	decoded := &Run{}
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, strategy.Dynamic, decoded.Strategy)
	assert.Equal(t, StatusCompleted, decoded.Status)
	assert.True(t, aRun.Window.Equal(decoded.Window))
	assert.Len(t, decoded.Partitions, 1)
}
