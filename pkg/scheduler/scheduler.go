// Package scheduler runs the simulator over a population in parallel.
//
// Households get their seeds in roster order before anything is filtered,
// so a household's result does not depend on sampling, resume or the
// number of workers. Selected households are dealt round-robin into one
// fixed queue per worker; each worker simulates its queue sequentially with
// its own WorkerState, and a single export goroutine drains the results.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/internal/random"
	"github.com/daysim/daysim/pkg/checkpoint"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/simulation"
	"github.com/daysim/daysim/pkg/telemetry"
	"github.com/daysim/daysim/pkg/writer"
)

// Simulator is the part of simulation.Simulator the scheduler drives.
type Simulator interface {
	SimulateHousehold(ctx context.Context, w *simulation.WorkerState, hh *model.Household) ([]*model.HouseholdDay, error)
}

// Options are the collaborators of a run. Exporter is required; the rest
// default to no-ops.
type Options struct {
	Config     config.Scheduler
	RandomSeed int64
	RunID      string

	Exporter   writer.Exporter
	Checkpoint checkpoint.Store
	Telemetry  *telemetry.Provider
	Logger     *slog.Logger

	// OnExported is called from the export goroutine after each household.
	OnExported func(householdID int)
}

// Fault is a household that failed with a hard error.
type Fault struct {
	HouseholdID int
	Code        simerrors.Code
	Err         error
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Workers   int
	Roster    int
	Sampled   int
	Resumed   int
	Simulated int
	Exported  int
	Counters  simulation.Counters
	Faults    []Fault
	Duration  time.Duration
}

// Scheduler runs households through a Simulator.
type Scheduler struct {
	sim    Simulator
	opts   Options
	logger *slog.Logger
}

// New creates a Scheduler.
func New(sim Simulator, opts Options) *Scheduler {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Checkpoint == nil {
		opts.Checkpoint = checkpoint.None{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Disabled()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{sim: sim, opts: opts, logger: logger}
}

// AssignSeeds gives every household its seed in roster order.
func AssignSeeds(households []*model.Household, seed int64) {
	seq := random.NewSeedSequence(seed)
	for _, hh := range households {
		hh.RandomSeed = seq.Next()
	}
}

// Sampled reports whether household id is part of a one-in-x sample.
func Sampled(id, oneInX, startWith int) bool {
	if oneInX <= 1 {
		return true
	}
	return (id+startWith)%oneInX == 0
}

// Partition deals households round-robin into n queues.
func Partition(households []*model.Household, n int) [][]*model.Household {
	if n < 1 {
		n = 1
	}
	queues := make([][]*model.Household, n)
	for i, hh := range households {
		queues[i%n] = append(queues[i%n], hh)
	}
	return queues
}

// Workers resolves the configured worker count.
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.GOMAXPROCS(0)
}

type result struct {
	hh   *model.Household
	days []*model.HouseholdDay
	err  error
}

// Run simulates the population and exports every completed household.
// Without FailFast a household fault is logged, recorded in the summary and
// the run continues; with FailFast the first fault cancels the run and is
// returned. The exporter is closed before Run returns.
func (s *Scheduler) Run(ctx context.Context, households []*model.Household) (*Summary, error) {
	start := time.Now()
	cfg := s.opts.Config
	summary := &Summary{RunID: s.opts.RunID, Roster: len(households)}

	AssignSeeds(households, s.opts.RandomSeed)

	completed, err := s.opts.Checkpoint.Completed(ctx)
	if err != nil {
		s.opts.Exporter.Close()
		return summary, err
	}
	var selected []*model.Household
	for _, hh := range households {
		if !Sampled(hh.ID, cfg.SamplingOneInX, cfg.SamplingStartWith) {
			continue
		}
		summary.Sampled++
		if completed[hh.ID] {
			summary.Resumed++
			continue
		}
		selected = append(selected, hh)
	}

	workers := Workers(cfg.Workers)
	if workers > len(selected) && len(selected) > 0 {
		workers = len(selected)
	}
	summary.Workers = workers
	queues := Partition(selected, workers)

	s.logger.Info("run started",
		"run_id", summary.RunID,
		"roster", summary.Roster,
		"sampled", summary.Sampled,
		"resumed", summary.Resumed,
		"workers", workers,
	)

	ctx, runSpan := s.opts.Telemetry.StartRun(ctx, summary.RunID, len(selected))
	defer runSpan.End()

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	results := make(chan result, bufSize)
	states := make([]*simulation.WorkerState, workers)

	// Use errgroup for coordinated shutdown
	g, gctx := errgroup.WithContext(ctx)

	var producers sync.WaitGroup
	for i, queue := range queues {
		states[i] = simulation.NewWorkerState(i)
		w, queue := states[i], queue
		producers.Add(1)
		g.Go(func() error {
			defer producers.Done()
			return s.work(gctx, w, queue, results)
		})
	}
	g.Go(func() error {
		producers.Wait()
		close(results)
		return nil
	})
	g.Go(func() error {
		return s.sink(gctx, results, summary)
	})

	err = g.Wait()

	// Always close the exporter
	if closeErr := s.opts.Exporter.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	for _, w := range states {
		if w != nil {
			summary.Counters.Merge(&w.Counters)
		}
	}
	sort.Slice(summary.Faults, func(i, j int) bool {
		return summary.Faults[i].HouseholdID < summary.Faults[j].HouseholdID
	})
	summary.Duration = time.Since(start)

	if err == nil && ctx.Err() != nil {
		err = simerrors.ContextCanceled("run")
	}
	s.logger.Info("run finished",
		"run_id", summary.RunID,
		"simulated", summary.Simulated,
		"exported", summary.Exported,
		"faults", len(summary.Faults),
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, err
}

// work simulates one queue in order.
func (s *Scheduler) work(ctx context.Context, w *simulation.WorkerState, queue []*model.Household, out chan<- result) error {
	for _, hh := range queue {
		if ctx.Err() != nil {
			return nil
		}

		hctx, span := s.opts.Telemetry.StartHousehold(ctx, hh.ID, w.ID)
		days, err := s.sim.SimulateHousehold(hctx, w, hh)
		attempts, valid := outcome(days)
		telemetry.EndHousehold(span, attempts, valid, err)

		if err != nil && simerrors.IsCode(err, simerrors.CodeContextCanceled) && ctx.Err() != nil {
			return nil
		}
		if err != nil && s.opts.Config.FailFast {
			return err
		}

		select {
		case out <- result{hh: hh, days: days, err: err}:
		case <-ctx.Done():
			return nil
		}
	}
	s.logger.Debug("worker finished", "worker", w.ID, "households", w.Counters.Households)
	return nil
}

func outcome(days []*model.HouseholdDay) (attempts int, valid bool) {
	valid = len(days) > 0
	for _, d := range days {
		attempts += d.AttemptedSimulations
		if !d.IsValid {
			valid = false
		}
	}
	return attempts, valid
}

// sink exports results and records them in the checkpoint store. It is the
// only goroutine touching the exporter, the store and the summary until the
// group has finished. Households already simulated are still exported after
// cancellation.
func (s *Scheduler) sink(ctx context.Context, results <-chan result, summary *Summary) error {
	ctx = context.WithoutCancel(ctx)
	for r := range results {
		summary.Simulated++
		if r.err != nil {
			code := simerrors.GetCode(r.err)
			s.logger.Error("household fault",
				"household", r.hh.ID,
				"code", code,
				"error", r.err,
			)
			summary.Faults = append(summary.Faults, Fault{HouseholdID: r.hh.ID, Code: code, Err: r.err})
			continue
		}

		if err := s.opts.Exporter.Export(ctx, r.days); err != nil {
			return simerrors.Wrap(err, simerrors.CodeWriteFailed, "export household").
				WithContext(simerrors.KeyHousehold, r.hh.ID)
		}
		if err := s.opts.Checkpoint.MarkDone(ctx, r.hh.ID); err != nil {
			return err
		}
		summary.Exported++
		if s.opts.OnExported != nil {
			s.opts.OnExported(r.hh.ID)
		}
	}
	return nil
}
