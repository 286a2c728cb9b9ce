package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// SRTN (Shortest-Remaining-Time-Next) is SJF's preemptive sibling: it
// re-elects the minimum-remaining-time job every tick. Only the running
// job's remaining time ever changes while it sits in the ready structure,
// so each tick rekeys just that one entry before electing (spec's design
// notes allow this in place of a decrease-key heap).
type SRTN struct {
	base
	q *priorityList
}

// NewSRTN builds a Shortest-Remaining-Time-Next policy.
func NewSRTN(table *proctable.Table, ctrl Controller, hook FinishHook) *SRTN {
	return &SRTN{base: newBase(table, ctrl, hook), q: newPriorityList()}
}

func (p *SRTN) Name() string { return "SRTN" }

func (p *SRTN) Admit(id int) {
	pcb, ok := p.table.Get(id)
	if !ok {
		return
	}
	p.q.enqueue(id, pcb.Remaining)
}

func (p *SRTN) Tick(now int) (bool, error) {
	if _, err := p.finishIfDone(now, func(id int) { p.q.remove(id) }); err != nil {
		return false, err
	}

	if p.running >= 0 {
		if pcb, ok := p.table.Get(p.running); ok {
			p.q.rekey(p.running, pcb.Remaining)
		}
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
