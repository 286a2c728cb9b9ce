package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// HPF (Highest-Priority-First) is preemptive: every tick it re-elects the
// maximum-priority ready job, which may differ from the one currently
// running.
type HPF struct {
	base
	q *priorityList
}

// NewHPF builds a Highest-Priority-First policy.
func NewHPF(table *proctable.Table, ctrl Controller, hook FinishHook) *HPF {
	return &HPF{base: newBase(table, ctrl, hook), q: newPriorityList()}
}

func (p *HPF) Name() string { return "HPF" }

func (p *HPF) Admit(id int) {
	pcb, ok := p.table.Get(id)
	if !ok {
		return
	}
	// Negated so the list's minimum key is the maximum-priority job.
	p.q.enqueue(id, -pcb.Priority)
}

func (p *HPF) Tick(now int) (bool, error) {
	if _, err := p.finishIfDone(now, func(id int) { p.q.remove(id) }); err != nil {
		return false, err
	}

	candidate, ok := p.q.peekMin()
	if !ok {
		return false, nil
	}
	if err := p.switchTo(now, candidate); err != nil {
		return false, err
	}

	p.incWaiting(p.q.allExcept(p.running))
	p.runOneTick()
	return true, nil
}
