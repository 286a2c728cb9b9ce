// Command schedsim replays a static workload through a tick-driven process
// scheduler and contiguous-memory allocator, producing scheduler.log,
// memory.log and scheduler.perf.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oslab-sim/schedsim/internal/clock"
	"github.com/oslab-sim/schedsim/internal/config"
	"github.com/oslab-sim/schedsim/internal/coordinator"
	"github.com/oslab-sim/schedsim/internal/intake"
	"github.com/oslab-sim/schedsim/internal/memory"
	"github.com/oslab-sim/schedsim/internal/policy"
	"github.com/oslab-sim/schedsim/internal/proctable"
	"github.com/oslab-sim/schedsim/internal/statusserver"
	"github.com/oslab-sim/schedsim/internal/telemetry"
	"github.com/oslab-sim/schedsim/internal/worker"
	"github.com/oslab-sim/schedsim/internal/workload"
	"github.com/oslab-sim/schedsim/pkg/types"
)

// tickPeriod is the wall-clock period backing clock.System. This binary's
// production clock just needs *a* period, so one tick per 10ms keeps a
// large workload file from taking minutes to replay.
const tickPeriod = 10 * time.Millisecond

type opts struct {
	logDir     string
	statusAddr string
	quantum    int
	memSize    int
	bufferCap  int
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "schedsim <input-file> <sch-algo> <mem-algo>",
		Short: "Process scheduler and memory allocator simulator",
		Long: `schedsim replays a static workload descriptor through a tick-driven
scheduler and contiguous-memory allocator, producing per-tick traces
(scheduler.log, memory.log) and aggregate performance metrics
(scheduler.perf).

  sch-algo: 1=FCFS 2=SJF 3=HPF 4=SRTN 5=RR
  mem-algo: 1=First-Fit 2=Next-Fit 3=Best-Fit 4=Buddy

Examples:
  schedsim workload.txt 1 1
  schedsim workload.txt 5 4 --quantum 4 --mem-size 256`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args)
		},
	}

	root.Flags().StringVar(&o.logDir, "log-dir", ".", "directory for scheduler.log, memory.log, scheduler.perf")
	root.Flags().StringVar(&o.statusAddr, "status-addr", "", "address for the read-only status server (e.g. :8080); empty disables it")
	root.Flags().IntVar(&o.quantum, "quantum", config.DefaultQuantum, "RR quantum Q, in ticks")
	root.Flags().IntVar(&o.memSize, "mem-size", config.DefaultMemSize, "memory manager address space size M")
	root.Flags().IntVar(&o.bufferCap, "buffer-cap", config.DefaultBufferCap, "intake buffer capacity B")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts, args []string) error {
	inputFile := args[0]

	schSel, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: sch-algo must be an integer: %v", ErrInvalidArgument, err)
	}
	memSel, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("%w: mem-algo must be an integer: %v", ErrInvalidArgument, err)
	}

	schName, ok := schAlgoName(schSel)
	if !ok {
		return fmt.Errorf("%w: sch-algo %d out of range 1..5", ErrInvalidArgument, schSel)
	}
	memStrategy, ok := memory.ParseStrategy(memSel)
	if !ok {
		return fmt.Errorf("%w: mem-algo %d out of range 1..4", ErrInvalidArgument, memSel)
	}

	cfg := config.Default()
	cfg.LogDir = o.logDir
	cfg.StatusAddr = o.statusAddr
	cfg.Quantum = o.quantum
	cfg.MemSize = o.memSize
	cfg.BufferCap = o.bufferCap

	jobs, err := workload.ParseFile(inputFile)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: %s contains no jobs", ErrInvalidArgument, inputFile)
	}

	runID := uuid.New()
	tel, err := telemetry.Open(cfg.LogDir, runID.String(), schName, memStrategy.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}

	logger := slog.Default()
	logger.Info("starting simulation",
		"sch_algo", schName, "mem_algo", memStrategy.String(),
		"mem_size", types.Bytes(cfg.MemSize).Humanized(), "jobs", len(jobs))

	table := proctable.New(cfg.ProcTableCap)
	mem := memory.New(memStrategy, cfg.MemSize, tel)
	ctrl := worker.NewController(table, tel)
	buf := intake.New(cfg.BufferCap)
	clk := clock.NewSystem(tickPeriod)
	defer clk.Close()

	// Policies take the coordinator itself as their FinishHook, so the
	// coordinator is built first with no policy, then the policy is
	// built against it, then attached (coordinator.SetPolicy).
	coord := coordinator.New(table, mem, ctrl, buf, nil, clk, tel, logger, len(jobs), runID)
	coord.SetPolicy(buildPolicy(schSel, cfg.Quantum, table, ctrl, coord))

	var status *statusserver.Server
	if cfg.StatusAddr != "" {
		status = statusserver.New(cfg.StatusAddr, coord)
		go func() {
			if err := status.ListenAndServe(); err != nil {
				logger.Error("status server exited", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := workload.NewGenerator(jobs, buf, clk)
	genErrCh := make(chan error, 1)
	go func() { genErrCh <- gen.Run(ctx) }()

	runErr := coord.Run(ctx)

	if status != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = status.Shutdown(shutdownCtx)
		cancel()
	}

	if genErr := <-genErrCh; genErr != nil && ctx.Err() == nil {
		logger.Warn("workload generator stopped early", "err", genErr)
	}

	if runErr == nil {
		logger.Info("simulation finished", "mem_size", types.Bytes(cfg.MemSize).Humanized())
	}

	return runErr
}

func schAlgoName(sel int) (string, bool) {
	switch sel {
	case 1:
		return "FCFS", true
	case 2:
		return "SJF", true
	case 3:
		return "HPF", true
	case 4:
		return "SRTN", true
	case 5:
		return "RR", true
	default:
		return "", false
	}
}

func buildPolicy(sel, quantum int, table *proctable.Table, ctrl *worker.Controller, hook policy.FinishHook) policy.Policy {
	switch sel {
	case 1:
		return policy.NewFCFS(table, ctrl, hook)
	case 2:
		return policy.NewSJF(table, ctrl, hook)
	case 3:
		return policy.NewHPF(table, ctrl, hook)
	case 4:
		return policy.NewSRTN(table, ctrl, hook)
	case 5:
		return policy.NewRR(table, ctrl, hook, quantum)
	default:
		return nil
	}
}
