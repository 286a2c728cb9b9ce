// Package telemetry owns the coordinator's three trace outputs
// (scheduler.log and memory.log, appended per event; scheduler.perf,
// rewritten on every finish) and the running performance accumulator
// they're fed from. Writers holds its file handles open for the
// coordinator's whole lifetime and flushes after each event, rather than
// opening and closing per line.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/oslab-sim/schedsim/internal/memory"
	"github.com/oslab-sim/schedsim/internal/proctable"
	"github.com/oslab-sim/schedsim/internal/worker"
)

// Writers satisfies worker.Logger and memory.Sink, and additionally tracks
// the rolling performance averages scheduler.perf reports.
type Writers struct {
	mu   sync.Mutex
	sched *os.File
	mem   *os.File
	perf  *os.File
	acc   *Accumulator
}

// Open creates (truncating) the three trace files under dir and stamps a
// per-algorithm run header into scheduler.log.
func Open(dir, runID, schAlgo, memAlgo string) (*Writers, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: creating log dir: %w", err)
	}
	sched, err := os.Create(filepath.Join(dir, "scheduler.log"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	mem, err := os.Create(filepath.Join(dir, "memory.log"))
	if err != nil {
		sched.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	perf, err := os.Create(filepath.Join(dir, "scheduler.perf"))
	if err != nil {
		sched.Close()
		mem.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	w := &Writers{sched: sched, mem: mem, perf: perf, acc: NewAccumulator()}
	fmt.Fprintf(sched, "# run %s sch=%s mem=%s\n", runID, schAlgo, memAlgo)
	fmt.Fprintln(sched, "# At time T process I <started|resumed|stopped|finished> arr A total R remain X wait W [TA T WTA F]")
	sched.Sync()
	return w, nil
}

// Close flushes and closes all three files. Safe to call once at teardown.
func (w *Writers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sched.Close()
	w.mem.Close()
	w.perf.Close()
}

// Transition implements worker.Logger, writing the scheduler.log line for
// one PCB state change.
func (w *Writers) Transition(tick int, pcb *proctable.PCB, kind string, final *worker.FinishStats) {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := fmt.Sprintf("At time %d process %d %s arr %d total %d remain %d wait %d",
		tick, pcb.ID, kind, pcb.Arrival, pcb.Runtime, pcb.Remaining, pcb.Waiting)
	if final != nil {
		line += fmt.Sprintf(" TA %.3f WTA %.3f", final.TA, final.WTA)
	}
	fmt.Fprintln(w.sched, line)
	w.sched.Sync()
}

// MemoryEvent implements memory.Sink, writing the memory.log line for one
// allocate/free event.
func (w *Writers) MemoryEvent(ev memory.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	kind := "allocated"
	if ev.Kind == memory.Freed {
		kind = "freed"
	}
	fmt.Fprintf(w.mem, "At time %d %s %d bytes for process %d from %d to %d\n",
		ev.Tick, kind, ev.Size, ev.JobID, ev.Start, ev.End)
	w.mem.Sync()
}

// RecordFinish folds a finished job's TA/WTA and accumulated waiting into
// the running accumulator, then rewrites scheduler.perf in full — the file
// is a whole-run summary, so it is overwritten rather than appended to on
// every finish.
func (w *Writers) RecordFinish(now, busyTicks int, wta float64, waiting int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.acc.Apply(wta, waiting)
	return w.writePerfLocked(now, busyTicks)
}

func (w *Writers) writePerfLocked(now, busyTicks int) error {
	if _, err := w.perf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := w.perf.Truncate(0); err != nil {
		return err
	}
	avg := w.acc.Averages()
	util := safeDiv(float64(busyTicks), float64(now)) * 100
	_, err := fmt.Fprintf(w.perf,
		"CPU utilization = %.2f%%\nAvg WTA = %.3f\nAvg Waiting = %.3f\n",
		util, avg.WTA, avg.Waiting)
	w.perf.Sync()
	return err
}

// safeDiv returns 0 instead of +Inf/NaN for a near-zero denominator.
func safeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}
