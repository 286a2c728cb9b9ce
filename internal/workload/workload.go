// Package workload parses the tab-separated job list and drives arrivals
// into the intake buffer at the right tick. The workload generator is
// treated as an external collaborator referenced only by interface; this
// package supplies a minimal, in-process stand-in so the CLI has something
// real to run against.
package workload

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oslab-sim/schedsim/internal/clock"
	"github.com/oslab-sim/schedsim/internal/intake"
)

// ErrInputFormat is returned when a non-comment line has fewer than five
// tab-separated fields, or a field fails to parse as an integer.
type ErrInputFormat struct {
	Line int
	Msg  string
}

func (e *ErrInputFormat) Error() string {
	return fmt.Sprintf("workload: line %d: %s", e.Line, e.Msg)
}

// ParseFile reads a workload descriptor file: tab-separated
// "id arrival runtime priority mem_size" lines, blank lines and lines
// starting with '#' are skipped.
func ParseFile(path string) ([]intake.JobDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workload: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var jobs []intake.JobDescriptor
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, &ErrInputFormat{Line: lineNo, Msg: "expected 5 fields (id arrival runtime priority mem_size)"}
		}
		vals := make([]int, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, &ErrInputFormat{Line: lineNo, Msg: fmt.Sprintf("field %d not an integer: %q", i, fields[i])}
			}
			vals[i] = v
		}
		jobs = append(jobs, intake.JobDescriptor{
			ID:       vals[0],
			Arrival:  vals[1],
			Runtime:  vals[2],
			Priority: vals[3],
			MemSize:  vals[4],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("workload: scan %s: %w", path, err)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Arrival < jobs[j].Arrival })
	return jobs, nil
}

// Generator feeds parsed jobs into the intake buffer as the clock reaches
// each job's arrival tick, standing in for a separate generator process
// reduced to what the coordinator needs to see real arrivals.
type Generator struct {
	jobs   []intake.JobDescriptor
	buf    *intake.Buffer
	clk    clock.Clock
	backoff time.Duration
}

// NewGenerator builds a Generator over jobs sorted by arrival tick.
func NewGenerator(jobs []intake.JobDescriptor, buf *intake.Buffer, clk clock.Clock) *Generator {
	return &Generator{jobs: jobs, buf: buf, clk: clk, backoff: time.Millisecond}
}

// Run pushes each job once the clock reaches its arrival tick, blocking
// with bounded backoff while the buffer is full, until all jobs are pushed
// or ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	done := ctx.Done()
	for _, job := range g.jobs {
		for g.clk.Now() < job.Arrival {
			if _, err := g.clk.Next(ctx); err != nil {
				return err
			}
		}
		if err := g.buf.PushBlocking(job, g.backoff, done); err != nil {
			return err
		}
	}
	return nil
}

// Total reports how many jobs this generator will deliver.
func (g *Generator) Total() int { return len(g.jobs) }
