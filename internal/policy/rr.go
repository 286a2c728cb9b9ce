package policy

import "github.com/oslab-sim/schedsim/internal/proctable"

// RR (Round-Robin) rotates through a circular ready list, giving each job
// at most quantum ticks before rotating to the next. The quantum counter
// resets to zero whenever the running job terminates or a rotation fires,
// so a job that finishes early never "owes" the next job a partial slice.
//
// A rotation earned this tick doesn't take effect until the *next* Tick,
// right before that tick's election: arrivals are admitted between ticks
// (the coordinator calls Admit before Tick), so a job arriving in the tick
// right after a quantum expires must see the ring exactly as the expiring
// job left it, not one slot further along. Advancing immediately would let
// the new arrival land in the wrong ring slot relative to the job whose
// quantum just ran out.
type RR struct {
	base
	q       *circularList
	quantum int
	used    int
	pending bool // rotation earned last tick, due at the top of this one
}

// NewRR builds a Round-Robin policy with the given quantum (in ticks).
func NewRR(table *proctable.Table, ctrl Controller, hook FinishHook, quantum int) *RR {
	return &RR{base: newBase(table, ctrl, hook), q: newCircularList(), quantum: quantum}
}

func (p *RR) Name() string { return "RR" }

func (p *RR) Admit(id int) { p.q.pushBack(id) }

func (p *RR) Tick(now int) (bool, error) {
	finished, err := p.finishIfDone(now, func(id int) {
		p.q.remove(id)
		p.used = 0
		p.pending = false
	})
	if err != nil {
		return false, err
	}

	// A finish already moved the ring past the old head via q.remove; a
	// separately pending rotation would double-advance past the job that's
	// now at the front.
	if !finished && p.pending {
		p.pending = false
		p.q.advance()
	}

	candidate, ok := p.q.frontID()
	if !ok {
		return false, nil
	}
	if err := p.switchTo(now, candidate); err != nil {
		return false, err
	}

	p.incWaiting(p.q.tailIDs())
	p.runOneTick()
	p.used++

	if p.used >= p.quantum {
		p.used = 0
		p.pending = true
	}

	return true, nil
}
