package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab-sim/schedsim/internal/proctable"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Transition(tick int, pcb *proctable.PCB, kind string, final *FinishStats) {
	l.lines = append(l.lines, kind)
}

func newPCB(id int) *proctable.PCB {
	return &proctable.PCB{ID: id, StartTime: -1, MemOffset: -1}
}

func TestController_SpawnThenResumeStartsAndStampsStartTime(t *testing.T) {
	table := proctable.New(4)
	pcb := newPCB(1)
	table.Put(pcb)
	log := &recordingLogger{}
	ctrl := NewController(table, log)

	ctx := context.Background()
	require.NoError(t, ctrl.Spawn(ctx, pcb))
	require.NotNil(t, pcb.Worker)
	assert.Equal(t, 1, pcb.Worker.ID())

	require.NoError(t, ctrl.Resume(0, pcb))
	assert.Equal(t, proctable.Running, pcb.State)
	assert.Equal(t, 0, pcb.StartTime)
	assert.Equal(t, []string{"started"}, log.lines)
}

func TestController_SecondResumeIsLabeledResumedNotStarted(t *testing.T) {
	table := proctable.New(4)
	pcb := newPCB(1)
	table.Put(pcb)
	log := &recordingLogger{}
	ctrl := NewController(table, log)

	ctx := context.Background()
	require.NoError(t, ctrl.Spawn(ctx, pcb))
	require.NoError(t, ctrl.Resume(0, pcb))
	require.NoError(t, ctrl.Stop(1, pcb))
	require.NoError(t, ctrl.Resume(2, pcb))

	assert.Equal(t, []string{"started", "stopped", "resumed"}, log.lines)
	assert.Equal(t, 0, pcb.StartTime, "start_time must only be stamped once")
}

func TestController_ResumeWithoutSpawnIsFatal(t *testing.T) {
	table := proctable.New(4)
	pcb := newPCB(1)
	table.Put(pcb)
	ctrl := NewController(table, nil)

	err := ctrl.Resume(0, pcb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWorkerLost))
}

func TestController_TerminateReleasesPCBAndLogsFinish(t *testing.T) {
	table := proctable.New(4)
	pcb := newPCB(1)
	table.Put(pcb)
	log := &recordingLogger{}
	ctrl := NewController(table, log)

	ctx := context.Background()
	require.NoError(t, ctrl.Spawn(ctx, pcb))
	require.NoError(t, ctrl.Resume(0, pcb))

	require.NoError(t, ctrl.Terminate(ctx, 5, pcb, FinishStats{TA: 5, WTA: 1.5}))

	assert.Equal(t, proctable.Finished, pcb.State)
	_, ok := table.Get(1)
	assert.False(t, ok, "a finished PCB must be released from the table")
	assert.Equal(t, []string{"started", "finished"}, log.lines)
}

func TestController_OnlyOneWorkerResumedAtATime(t *testing.T) {
	table := proctable.New(4)
	a, b := newPCB(1), newPCB(2)
	table.Put(a)
	table.Put(b)
	ctrl := NewController(table, nil)

	ctx := context.Background()
	require.NoError(t, ctrl.Spawn(ctx, a))
	require.NoError(t, ctrl.Spawn(ctx, b))
	require.NoError(t, ctrl.Resume(0, a))

	resumed := make(chan struct{})
	go func() {
		_ = ctrl.Resume(0, b)
		close(resumed)
	}()

	select {
	case <-resumed:
		t.Fatal("job 2 must not resume while job 1 holds the CPU")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, ctrl.Stop(1, a))

	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Fatal("job 2 should resume once job 1 releases the CPU")
	}
}

func TestController_TerminateAllStopsEveryWorker(t *testing.T) {
	table := proctable.New(4)
	a, b := newPCB(1), newPCB(2)
	table.Put(a)
	table.Put(b)
	ctrl := NewController(table, nil)

	ctx := context.Background()
	require.NoError(t, ctrl.Spawn(ctx, a))
	require.NoError(t, ctrl.Spawn(ctx, b))

	ctrl.TerminateAll(nil)
	assert.Empty(t, ctrl.workers)
}
