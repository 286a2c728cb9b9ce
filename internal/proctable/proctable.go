// Package proctable implements the dense job-id-to-PCB mapping, plus the
// PCB type itself.
package proctable

import (
	"errors"
	"fmt"

	"github.com/oslab-sim/schedsim/internal/intake"
)

// ErrReleased is returned by MustGet when id names a PCB already released
// after finishing — such lookups are illegal. Get reports the same case as
// ok == false.
var ErrReleased = errors.New("proctable: id released")

// State is the PCB lifecycle state.
type State int

const (
	Waiting State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// WorkerHandle is the narrow view of a worker the PCB needs to hold; the
// concrete type lives in package worker and satisfies this structurally to
// avoid an import cycle.
type WorkerHandle interface {
	ID() int
}

// PCB is the per-admitted-job process control block.
type PCB struct {
	ID       int
	Arrival  int
	Runtime  int
	Priority int
	MemSize  int

	StartTime int // -1 before first run
	Remaining int
	Executed  int
	Waiting   int
	State     State
	MemOffset int // -1 if not yet allocated

	Worker WorkerHandle
}

// NewPCB builds a freshly-admitted PCB with the invariants required at
// intake time.
func NewPCB(job intake.JobDescriptor) *PCB {
	return &PCB{
		ID:        job.ID,
		Arrival:   job.Arrival,
		Runtime:   job.Runtime,
		Priority:  job.Priority,
		MemSize:   job.MemSize,
		StartTime: -1,
		Remaining: job.Runtime,
		Executed:  0,
		State:     Waiting,
		MemOffset: -1,
	}
}

// Table is the dense id->*PCB mapping. It grows by doubling and never
// shrinks; entries are released on finish and subsequent lookups are
// illegal.
type Table struct {
	entries  []*PCB
	released map[int]bool
}

// New returns a Table with the given initial capacity (PROC_TABLE_INIT).
func New(initCap int) *Table {
	if initCap <= 0 {
		initCap = 1
	}
	return &Table{
		entries:  make([]*PCB, initCap),
		released: make(map[int]bool),
	}
}

// ensure grows the table by doubling until id is in range.
func (t *Table) ensure(id int) {
	if id < len(t.entries) {
		return
	}
	newSize := len(t.entries)
	if newSize == 0 {
		newSize = 1
	}
	for id >= newSize {
		newSize *= 2
	}
	grown := make([]*PCB, newSize)
	copy(grown, t.entries)
	t.entries = grown
}

// Put admits pcb into the table, growing it first if needed.
func (t *Table) Put(pcb *PCB) {
	t.ensure(pcb.ID)
	t.entries[pcb.ID] = pcb
	delete(t.released, pcb.ID)
}

// Get returns the PCB for id. ok is false if the id has never been
// admitted or was already released.
func (t *Table) Get(id int) (*PCB, bool) {
	if id < 0 || id >= len(t.entries) || t.entries[id] == nil {
		return nil, false
	}
	return t.entries[id], true
}

// MustGet panics-free variant for internal call sites that already know
// the id is live; it returns an error instead of panicking on misuse.
func (t *Table) MustGet(id int) (*PCB, error) {
	pcb, ok := t.Get(id)
	if !ok {
		if t.released[id] {
			return nil, fmt.Errorf("%w: id=%d", ErrReleased, id)
		}
		return nil, fmt.Errorf("proctable: unknown id=%d", id)
	}
	return pcb, nil
}

// Release frees the PCB slot for id after it has finished. Further Get
// calls for id report ok == false, and MustGet reports ErrReleased.
func (t *Table) Release(id int) {
	if id >= 0 && id < len(t.entries) {
		t.entries[id] = nil
	}
	t.released[id] = true
}

// Cap reports the table's current backing capacity.
func (t *Table) Cap() int { return len(t.entries) }
