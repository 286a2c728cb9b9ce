package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// Controller is the subset of worker.Controller a policy needs to drive
// preemption and election. worker.Controller satisfies this structurally.
type Controller interface {
	Resume(now int, pcb *proctable.PCB) error
	Stop(now int, pcb *proctable.PCB) error
}

// FinishHook is invoked once, synchronously, when a running job's
// remaining time reaches zero. The coordinator's implementation frees the
// job's memory, terminates and reaps its worker, writes the finish log
// line (with TA/WTA), and folds the job into the performance accumulator.
type FinishHook interface {
	OnFinish(now int, pcb *proctable.PCB) error
}

// Policy is the common interface for all five scheduling strategies.
type Policy interface {
	// Name identifies the policy for logs and CLI selection.
	Name() string
	// Admit moves a newly-admitted job into the policy's ready structure.
	// Called once per newly-admitted job, before the next Tick call (a job
	// admitted while the coordinator waits mid-tick is admitted after that
	// tick's Tick and first seen by the following one).
	Admit(id int)
	// Tick runs one tick of the shared per-tick skeleton (elect, preempt if
	// needed, run, detect finish) and reports whether a process ran.
	Tick(now int) (ran bool, err error)
}

// base holds the state and collaborators every policy shares: the process
// table, the worker controller, the finish hook, and the currently running
// job id (-1 if none).
type base struct {
	table   *proctable.Table
	ctrl    Controller
	hook    FinishHook
	running int
}

func newBase(table *proctable.Table, ctrl Controller, hook FinishHook) base {
	return base{table: table, ctrl: ctrl, hook: hook, running: -1}
}

// incWaiting increments the waiting counter for every id in ids.
func (b *base) incWaiting(ids []int) {
	for _, id := range ids {
		if pcb, ok := b.table.Get(id); ok {
			pcb.Waiting++
		}
	}
}

// switchTo preempts the current running job (if any and if it differs
// from candidate) and resumes candidate.
func (b *base) switchTo(now, candidate int) error {
	if candidate == b.running {
		return nil
	}
	if b.running >= 0 {
		if pcb, ok := b.table.Get(b.running); ok {
			if err := b.ctrl.Stop(now, pcb); err != nil {
				return err
			}
		}
	}
	pcb, ok := b.table.Get(candidate)
	if ok {
		if err := b.ctrl.Resume(now, pcb); err != nil {
			return err
		}
	}
	b.running = candidate
	return nil
}

// runOneTick decrements the running job's remaining time and increments
// its executed count.
func (b *base) runOneTick() {
	if b.running < 0 {
		return
	}
	pcb, ok := b.table.Get(b.running)
	if !ok {
		return
	}
	if pcb.Remaining > 0 {
		pcb.Remaining--
		pcb.Executed++
	}
}

// finishIfDone checks whether the running job's remaining time has
// reached zero and, if so, reaps it via the finish hook and clears the
// running slot. Returns true if a finish occurred.
func (b *base) finishIfDone(now int, removeFromStructure func(id int)) (bool, error) {
	if b.running < 0 {
		return false, nil
	}
	pcb, ok := b.table.Get(b.running)
	if !ok || pcb.Remaining > 0 {
		return false, nil
	}
	removeFromStructure(b.running)
	if err := b.hook.OnFinish(now, pcb); err != nil {
		return false, err
	}
	b.running = -1
	return true, nil
}
