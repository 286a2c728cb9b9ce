// Package coordinator implements the top-level tick loop: drain the intake
// buffer, attempt admission, elect and run a job, wait for the next tick.
// It replaces scattered module-level globals (shared memory pointers,
// queues, process-table pointer) with one value constructed once at
// startup and torn down once at exit.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/oslab-sim/schedsim/internal/clock"
	"github.com/oslab-sim/schedsim/internal/intake"
	"github.com/oslab-sim/schedsim/internal/memory"
	"github.com/oslab-sim/schedsim/internal/policy"
	"github.com/oslab-sim/schedsim/internal/proctable"
	"github.com/oslab-sim/schedsim/internal/telemetry"
	"github.com/oslab-sim/schedsim/internal/worker"
)

// Snapshot is the read-only per-PCB view internal/statusserver exposes.
type Snapshot struct {
	ID        int    `json:"id"`
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	Waiting   int    `json:"waiting"`
	MemOffset int    `json:"mem_offset"`
}

// Coordinator owns every piece of shared mutable state (intake buffer,
// memory layout, process table) and drives them from a single goroutine,
// so scheduling and admission decisions never race each other.
type Coordinator struct {
	runID uuid.UUID

	table *proctable.Table
	mem   memory.Manager
	ctrl  *worker.Controller
	buf   *intake.Buffer
	pol   policy.Policy
	clk   clock.Clock
	tel   *telemetry.Writers
	log   *slog.Logger

	total     int
	drained   int
	waitQueue []int

	snapMu    sync.RWMutex
	finished  int
	busyTicks int

	teardownOnce sync.Once
}

// New builds a Coordinator. total is the number of jobs the workload
// generator will ultimately push through the intake buffer; the
// coordinator uses it only to know when the run is complete. runID tags
// this run in scheduler.log and the status server; pass uuid.New() unless
// a caller needs a fixed id for a test.
func New(
	table *proctable.Table,
	mem memory.Manager,
	ctrl *worker.Controller,
	buf *intake.Buffer,
	pol policy.Policy,
	clk clock.Clock,
	tel *telemetry.Writers,
	log *slog.Logger,
	total int,
	runID uuid.UUID,
) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		runID: runID,
		table: table, mem: mem, ctrl: ctrl, buf: buf, pol: pol, clk: clk, tel: tel, log: log,
		total: total,
	}
}

// SetPolicy attaches the scheduling policy. Policies take the Coordinator
// itself as their FinishHook, so construction is necessarily two-phase:
// build the Coordinator with a nil policy, build the policy with the
// Coordinator as its hook, then SetPolicy before calling Run.
func (c *Coordinator) SetPolicy(pol policy.Policy) { c.pol = pol }

// RunID identifies this simulation run, stamped into scheduler.log's
// header and exposed over the status server so concurrent invocations
// against the same log directory are distinguishable.
func (c *Coordinator) RunID() string { return c.runID.String() }

// Run drives the coordinator loop until every job has either finished or
// been recognized as permanently unsatisfiable (its memory footprint
// exceeds the manager's total size, so it would wait forever), or ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.Teardown()

	for {
		now := c.clk.Now()

		newIDs := c.drainIntake()
		if err := c.attemptAdmission(ctx, now, newIDs); err != nil {
			return fmt.Errorf("coordinator: tick %d: %w", now, err)
		}

		ran, err := c.pol.Tick(now)
		if err != nil {
			return fmt.Errorf("coordinator: tick %d: %w", now, err)
		}
		if ran {
			c.snapMu.Lock()
			c.busyTicks++
			c.snapMu.Unlock()
		}

		if c.done() {
			return nil
		}

		if err := c.waitForNextTick(ctx, now); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("coordinator: waiting for next tick: %w", err)
		}
	}
}

// waitForNextTick blocks until the clock advances past now. A job pushed
// into the intake buffer while still waiting is admitted right away instead
// of sitting unseen until the tick boundary: each time the buffer wakes
// before the clock does, it drains and retries admission for now, then goes
// back to waiting, all without re-invoking the policy's Tick for now.
func (c *Coordinator) waitForNextTick(ctx context.Context, now int) error {
	for {
		advanced, err := c.wait(ctx)
		if err != nil {
			return err
		}
		if advanced {
			return nil
		}
		newIDs := c.drainIntake()
		if err := c.attemptAdmission(ctx, now, newIDs); err != nil {
			return err
		}
	}
}

// wait blocks until either the tick advances or the intake buffer receives a
// push, whichever comes first; advanced reports which one woke it.
func (c *Coordinator) wait(ctx context.Context) (advanced bool, err error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.clk.Next(waitCtx)
		done <- err
	}()

	select {
	case err := <-done:
		return true, err
	case <-c.buf.Notify():
		cancel()
		<-done
		return false, nil
	}
}

// done reports whether every job the generator will ever produce has
// either finished or is permanently stuck (mem_size exceeds the manager's
// total address space, so no fragmentation state will ever admit it).
func (c *Coordinator) done() bool {
	if c.drained < c.total {
		return false
	}
	c.snapMu.RLock()
	finished := c.finished
	c.snapMu.RUnlock()
	if finished >= c.total {
		return true
	}
	stuck := 0
	for _, id := range c.waitQueue {
		if pcb, ok := c.table.Get(id); ok && pcb.MemSize > c.mem.Size() {
			stuck++
		}
	}
	return finished+stuck == c.total
}

// drainIntake moves pending job descriptors into the process table,
// returning the newly-drained ids in arrival order; memory admission for
// them happens afterwards, in attemptAdmission.
func (c *Coordinator) drainIntake() []int {
	jobs := c.buf.Drain()
	var newIDs []int
	for _, j := range jobs {
		pcb := proctable.NewPCB(j)
		c.table.Put(pcb)
		newIDs = append(newIDs, pcb.ID)
		c.drained++
	}
	return newIDs
}

// attemptAdmission first tries each newly-drained job in arrival order,
// then retries the carried-over wait queue head-to-tail: new arrivals get
// first claim on freshly-freed space, but a long-waiting job still gets
// retried every tick.
func (c *Coordinator) attemptAdmission(ctx context.Context, now int, newIDs []int) error {
	for _, id := range newIDs {
		pcb, ok := c.table.Get(id)
		if !ok {
			continue
		}
		admitted, err := c.admitOne(ctx, now, pcb)
		if err != nil {
			return err
		}
		if !admitted {
			c.waitQueue = append(c.waitQueue, id)
		}
	}

	remaining := c.waitQueue[:0:0]
	for _, id := range c.waitQueue {
		pcb, ok := c.table.Get(id)
		if !ok {
			continue
		}
		admitted, err := c.admitOne(ctx, now, pcb)
		if err != nil {
			return err
		}
		if !admitted {
			pcb.Waiting++
			remaining = append(remaining, id)
		}
	}
	c.waitQueue = remaining
	return nil
}

// admitOne attempts a single allocation and, on success, spawns the job's
// worker (idle until its first Resume) and admits it into the scheduling
// policy. A
// false return with a nil error means the allocation simply failed (not an
// error — it drives a wait-queue retry); a non-nil error is fatal
// (ErrWorkerLost) and the memory just granted is rolled back so it isn't
// leaked.
func (c *Coordinator) admitOne(ctx context.Context, now int, pcb *proctable.PCB) (bool, error) {
	offset, ok := c.mem.Allocate(now, pcb.MemSize, pcb.ID)
	if !ok {
		return false, nil
	}
	pcb.MemOffset = offset
	if err := c.ctrl.Spawn(ctx, pcb); err != nil {
		if freeErr := c.mem.Free(now, offset, pcb.ID); freeErr != nil {
			c.log.Error("rollback free after failed spawn also failed", "id", pcb.ID, "err", freeErr)
		}
		pcb.MemOffset = -1
		return false, fmt.Errorf("coordinator: admitting id=%d: %w", pcb.ID, err)
	}
	c.pol.Admit(pcb.ID)
	return true, nil
}

// OnFinish implements policy.FinishHook: it frees the job's memory,
// terminates and reaps its worker, folds its figures into the performance
// accumulator, and rewrites scheduler.perf.
func (c *Coordinator) OnFinish(now int, pcb *proctable.PCB) error {
	if err := c.mem.Free(now, pcb.MemOffset, pcb.ID); err != nil {
		return fmt.Errorf("coordinator: free on finish: %w", err)
	}
	pcb.MemOffset = -1

	ta := float64(now - pcb.Arrival)
	var wta float64
	if pcb.Runtime > 0 {
		wta = ta / float64(pcb.Runtime)
	}

	if err := c.ctrl.Terminate(context.Background(), now, pcb, worker.FinishStats{TA: ta, WTA: wta}); err != nil {
		return fmt.Errorf("coordinator: terminate on finish: %w", err)
	}

	c.snapMu.Lock()
	c.finished++
	busy := c.busyTicks
	c.snapMu.Unlock()

	if c.tel != nil {
		if err := c.tel.RecordFinish(now, busy, wta, pcb.Waiting); err != nil {
			c.log.Warn("scheduler.perf write failed", "err", err)
		}
	}
	return nil
}

// Teardown stops every live worker and closes the trace files. It is
// idempotent: an interrupt signal and a normal Run return may both call it.
func (c *Coordinator) Teardown() {
	c.teardownOnce.Do(func() {
		c.ctrl.TerminateAll(c.log)
		if c.tel != nil {
			c.tel.Close()
		}
	})
}

// Snapshot returns a read-only view of the process table for
// internal/statusserver. It is safe to call concurrently with Run.
func (c *Coordinator) Snapshot() (tick, busyTicks int, pcbs []Snapshot) {
	c.snapMu.RLock()
	busy := c.busyTicks
	c.snapMu.RUnlock()

	tick = c.clk.Now()
	for id := 0; id < c.table.Cap(); id++ {
		pcb, ok := c.table.Get(id)
		if !ok {
			continue
		}
		pcbs = append(pcbs, Snapshot{
			ID:        pcb.ID,
			State:     pcb.State.String(),
			Remaining: pcb.Remaining,
			Waiting:   pcb.Waiting,
			MemOffset: pcb.MemOffset,
		})
	}
	return tick, busy, pcbs
}
