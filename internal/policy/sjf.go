package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// SJF elects the minimum-runtime job and never preempts once running
// (spec fixes SJF as non-preemptive; SRTN is its preemptive sibling).
type SJF struct {
	base
	q *priorityList
}

// NewSJF builds a Shortest-Job-First policy.
func NewSJF(table *proctable.Table, ctrl Controller, hook FinishHook) *SJF {
	return &SJF{base: newBase(table, ctrl, hook), q: newPriorityList()}
}

func (p *SJF) Name() string { return "SJF" }

func (p *SJF) Admit(id int) {
	pcb, ok := p.table.Get(id)
	if !ok {
		return
	}
	p.q.enqueue(id, pcb.Runtime)
}

func (p *SJF) Tick(now int) (bool, error) {
	if _, err := p.finishIfDone(now, func(id int) { p.q.remove(id) }); err != nil {
		return false, err
	}

	if p.running >= 0 {
		// Non-preemptive: keep running until it finishes, even if a
		// shorter job has since taken the list's minimum-key slot.
		p.incWaiting(p.q.allExcept(p.running))
		p.runOneTick()
		return true, nil
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
