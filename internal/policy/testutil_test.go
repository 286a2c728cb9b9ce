package policy

import (
	"github.com/oslab-sim/schedsim/internal/proctable"
)

// fakeController records every Resume/Stop call instead of driving real
// workers, so policy logic can be exercised without the worker package.
type fakeController struct {
	resumed []int
	stopped []int
}

func (f *fakeController) Resume(now int, pcb *proctable.PCB) error {
	f.resumed = append(f.resumed, pcb.ID)
	pcb.State = proctable.Running
	if pcb.StartTime < 0 {
		pcb.StartTime = now
	}
	return nil
}

func (f *fakeController) Stop(now int, pcb *proctable.PCB) error {
	f.stopped = append(f.stopped, pcb.ID)
	pcb.State = proctable.Waiting
	return nil
}

// fakeHook records every OnFinish call in order, standing in for the
// coordinator's memory-free/terminate/telemetry side effects.
type fakeHook struct {
	finished   []int
	finishTick map[int]int
}

func (f *fakeHook) OnFinish(now int, pcb *proctable.PCB) error {
	f.finished = append(f.finished, pcb.ID)
	if f.finishTick == nil {
		f.finishTick = make(map[int]int)
	}
	f.finishTick[pcb.ID] = now
	pcb.State = proctable.Finished
	return nil
}

func newTestTable(jobs ...*proctable.PCB) *proctable.Table {
	table := proctable.New(4)
	for _, pcb := range jobs {
		table.Put(pcb)
	}
	return table
}

func job(id, arrival, runtime, priority, memSize int) *proctable.PCB {
	pcb := &proctable.PCB{
		ID: id, Arrival: arrival, Runtime: runtime, Priority: priority, MemSize: memSize,
		StartTime: -1, Remaining: runtime, MemOffset: -1,
	}
	return pcb
}
