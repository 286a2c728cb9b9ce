package proctable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab-sim/schedsim/internal/intake"
)

func TestNewPCB_InitialInvariants(t *testing.T) {
	job := intake.JobDescriptor{ID: 3, Arrival: 5, Runtime: 10, Priority: 2, MemSize: 64}
	pcb := NewPCB(job)

	assert.Equal(t, 3, pcb.ID)
	assert.Equal(t, 5, pcb.Arrival)
	assert.Equal(t, 10, pcb.Runtime)
	assert.Equal(t, 10, pcb.Remaining)
	assert.Equal(t, 0, pcb.Executed)
	assert.Equal(t, -1, pcb.StartTime)
	assert.Equal(t, -1, pcb.MemOffset)
	assert.Equal(t, Waiting, pcb.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestTable_PutGetGrows(t *testing.T) {
	table := New(2)
	require.Equal(t, 2, table.Cap())

	for id := 0; id < 5; id++ {
		table.Put(NewPCB(intake.JobDescriptor{ID: id, Arrival: id, Runtime: 1, MemSize: 1}))
	}
	require.GreaterOrEqual(t, table.Cap(), 5)

	for id := 0; id < 5; id++ {
		pcb, ok := table.Get(id)
		require.True(t, ok, "id=%d", id)
		assert.Equal(t, id, pcb.ID)
	}
}

func TestTable_GetUnknown(t *testing.T) {
	table := New(4)
	_, ok := table.Get(0)
	assert.False(t, ok)
	_, ok = table.Get(-1)
	assert.False(t, ok)
	_, ok = table.Get(100)
	assert.False(t, ok)
}

func TestTable_ReleaseThenGet(t *testing.T) {
	table := New(4)
	table.Put(NewPCB(intake.JobDescriptor{ID: 1, Runtime: 1, MemSize: 1}))

	table.Release(1)

	_, ok := table.Get(1)
	assert.False(t, ok)

	_, err := table.MustGet(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReleased))
}

func TestTable_MustGetUnknownID(t *testing.T) {
	table := New(4)
	_, err := table.MustGet(7)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReleased))
}

func TestTable_PutAfterReleaseClearsReleasedFlag(t *testing.T) {
	table := New(4)
	table.Put(NewPCB(intake.JobDescriptor{ID: 2, Runtime: 1, MemSize: 1}))
	table.Release(2)

	table.Put(NewPCB(intake.JobDescriptor{ID: 2, Runtime: 5, MemSize: 1}))
	pcb, ok := table.Get(2)
	require.True(t, ok)
	assert.Equal(t, 5, pcb.Runtime)
}
