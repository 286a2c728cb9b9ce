// Package worker drives the per-job worker processes: spawn, suspend,
// resume and terminate, plus the handshake semaphore that guarantees a
// worker is fully initialized before its first suspension.
//
// A job's worker is treated as an opaque unit accepting a runtime argument
// and ticking down. This package realizes that unit as an in-process
// goroutine driven by a control contract (start/stop/resume/terminate plus
// a readiness and exit handshake) rather than forking a real OS process,
// since the coordinator only ever needs to observe the control contract,
// not a process boundary (see DESIGN.md).
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/oslab-sim/schedsim/internal/proctable"
)

// ErrWorkerLost is fatal: a worker failed to handshake readiness or exit.
var ErrWorkerLost = errors.New("worker: lost handshake")

// Logger receives the transition lines the controller reports
// (started/resumed/stopped/finished).
type Logger interface {
	Transition(tick int, pcb *proctable.PCB, kind string, final *FinishStats)
}

// FinishStats carries the two figures scheduler.log prints only on finish.
type FinishStats struct {
	TA  float64
	WTA float64
}

// handle is the concrete worker handle stored on the PCB; it satisfies
// proctable.WorkerHandle structurally.
type handle struct {
	id int
}

func (h *handle) ID() int { return h.id }

type procWorker struct {
	id int

	resume chan struct{}
	stop   chan struct{}
	quit   chan struct{}

	ready *semaphore.Weighted // worker posts once initialized
	exit  *semaphore.Weighted // worker posts once it has actually returned
}

// newHandshake returns a binary semaphore that starts "empty": the first
// Acquire blocks until a Release posts it, mirroring sem_wait/sem_post.
func newHandshake() *semaphore.Weighted {
	s := semaphore.NewWeighted(1)
	_ = s.Acquire(context.Background(), 1)
	return s
}

func spawn(id int) *procWorker {
	w := &procWorker{
		id:     id,
		resume: make(chan struct{}, 1),
		stop:   make(chan struct{}, 1),
		quit:   make(chan struct{}, 1),
		ready:  newHandshake(),
		exit:   newHandshake(),
	}
	go w.run()
	return w
}

// run is the worker's entire lifecycle: signal readiness, then consume
// resume/stop signals (the simulation clock drives the authoritative
// remaining-time countdown via the policy, not this goroutine) until told
// to quit, at which point it signals its exit handshake.
func (w *procWorker) run() {
	w.ready.Release(1)
	for {
		select {
		case <-w.resume:
		case <-w.stop:
		case <-w.quit:
			w.exit.Release(1)
			return
		}
	}
}

// Controller wraps spawn/suspend/resume/terminate for every admitted job's
// worker, mutating PCB state and start_time as each transition requires.
type Controller struct {
	table   *proctable.Table
	log     Logger
	workers map[int]*procWorker
	cpu     *semaphore.Weighted // weight 1: at most one worker resumed at a time
}

// NewController builds a Controller bound to the given process table.
func NewController(table *proctable.Table, log Logger) *Controller {
	return &Controller{
		table:   table,
		log:     log,
		workers: make(map[int]*procWorker),
		cpu:     semaphore.NewWeighted(1),
	}
}

// Spawn starts a worker for id and waits for its readiness handshake before
// registering it, so the worker is fully initialized before the controller
// ever signals it. No stop signal is sent here: the worker stays idle until
// its first Resume, and pcb.State is left unchanged.
func (c *Controller) Spawn(ctx context.Context, pcb *proctable.PCB) error {
	w := spawn(pcb.ID)
	if err := w.ready.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: id=%d: %v", ErrWorkerLost, pcb.ID, err)
	}
	c.workers[pcb.ID] = w
	pcb.Worker = &handle{id: pcb.ID}
	return nil
}

// Resume sends the resume signal, marks the PCB running, and stamps
// start_time on first resume.
func (c *Controller) Resume(now int, pcb *proctable.PCB) error {
	w, ok := c.workers[pcb.ID]
	if !ok {
		return fmt.Errorf("%w: id=%d: not spawned", ErrWorkerLost, pcb.ID)
	}
	if err := c.cpu.Acquire(context.Background(), 1); err != nil {
		return err
	}
	select {
	case w.resume <- struct{}{}:
	default:
	}

	first := pcb.StartTime < 0
	pcb.State = proctable.Running
	if first {
		pcb.StartTime = now
	}
	if c.log != nil {
		kind := "resumed"
		if first {
			kind = "started"
		}
		c.log.Transition(now, pcb, kind, nil)
	}
	return nil
}

// Stop sends the stop (preempt) signal and marks the PCB waiting.
func (c *Controller) Stop(now int, pcb *proctable.PCB) error {
	w, ok := c.workers[pcb.ID]
	if !ok {
		return fmt.Errorf("%w: id=%d: not spawned", ErrWorkerLost, pcb.ID)
	}
	select {
	case w.stop <- struct{}{}:
	default:
	}
	c.cpu.Release(1)

	pcb.State = proctable.Waiting
	if c.log != nil {
		c.log.Transition(now, pcb, "stopped", nil)
	}
	return nil
}

// Terminate waits for the worker's exit handshake (so teardown never races
// the final tick), reaps it, and releases the PCB from the process table.
func (c *Controller) Terminate(ctx context.Context, now int, pcb *proctable.PCB, final FinishStats) error {
	w, ok := c.workers[pcb.ID]
	if !ok {
		return fmt.Errorf("%w: id=%d: not spawned", ErrWorkerLost, pcb.ID)
	}
	c.cpu.Release(1)

	select {
	case w.quit <- struct{}{}:
	default:
	}
	if err := w.exit.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: id=%d: %v", ErrWorkerLost, pcb.ID, err)
	}
	delete(c.workers, pcb.ID)

	pcb.State = proctable.Finished
	if c.log != nil {
		c.log.Transition(now, pcb, "finished", &final)
	}
	c.table.Release(pcb.ID)
	return nil
}

// TerminateAll is called during teardown to stop every live worker without
// waiting for graceful exit handshakes, since the simulation is aborting.
func (c *Controller) TerminateAll(logger *slog.Logger) {
	for id, w := range c.workers {
		select {
		case w.quit <- struct{}{}:
		default:
		}
		if logger != nil {
			logger.Debug("terminated worker on teardown", "id", id)
		}
	}
	c.workers = make(map[int]*procWorker)
}
