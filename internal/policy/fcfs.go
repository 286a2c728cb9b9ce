package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// FCFS elects the head of a FIFO and never preempts it.
type FCFS struct {
	base
	q *fifo
}

// NewFCFS builds a First-Come-First-Served policy.
func NewFCFS(table *proctable.Table, ctrl Controller, hook FinishHook) *FCFS {
	return &FCFS{base: newBase(table, ctrl, hook), q: &fifo{}}
}

func (p *FCFS) Name() string { return "FCFS" }

func (p *FCFS) Admit(id int) { p.q.pushBack(id) }

func (p *FCFS) Tick(now int) (bool, error) {
	finished, err := p.finishIfDone(now, func(id int) { p.q.remove(id) })
	if err != nil {
		return false, err
	}
	_ = finished

	candidate, ok := p.q.front()
	if !ok {
		return false, nil
	}
	if err := p.switchTo(now, candidate); err != nil {
		return false, err
	}

	p.incWaiting(p.q.tail())
	p.runOneTick()
	return true, nil
}
