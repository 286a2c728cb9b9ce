package telemetry

// Result is the rolling performance snapshot scheduler.perf reports.
type Result struct {
	WTA     float64
	Waiting float64
}

// Accumulator keeps running sums and averages over finished jobs:
// weighted turnaround and waiting time.
type Accumulator struct {
	count      int
	sumWTA     float64
	sumWaiting float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator { return &Accumulator{} }

// Apply folds one finished job's WTA and total waiting ticks into the
// running sums and returns the updated averages.
func (a *Accumulator) Apply(wta float64, waiting int) Result {
	a.count++
	a.sumWTA += wta
	a.sumWaiting += float64(waiting)
	return a.Averages()
}

// Averages returns the mean WTA and mean waiting ticks over all applied
// jobs so far, or the zero Result if none have finished yet.
func (a *Accumulator) Averages() Result {
	if a.count == 0 {
		return Result{}
	}
	n := float64(a.count)
	return Result{WTA: a.sumWTA / n, Waiting: a.sumWaiting / n}
}
