package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daysim/daysim/internal/logging"
	"github.com/daysim/daysim/pkg/checkpoint"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/population"
	"github.com/daysim/daysim/pkg/registry"
	"github.com/daysim/daysim/pkg/report"
	"github.com/daysim/daysim/pkg/scheduler"
	"github.com/daysim/daysim/pkg/simulation"
	"github.com/daysim/daysim/pkg/storage/s3"
	"github.com/daysim/daysim/pkg/telemetry"
	"github.com/daysim/daysim/pkg/tui"
	"github.com/daysim/daysim/pkg/writer"
)

// Run flags
var (
	workersFlag   int
	daysFlag      int
	seedFlag      int64
	outputFlag    string
	formatFlag    string
	regionFlag    string
	failFastFlag  bool
	householdsArg int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the population and export the results",
	Long: `Simulate every sampled household for the configured number of days.

Flags override DAYSIM_* environment variables, which override the
configuration file.

Examples:
  daysim run
  daysim run -c daysim.yaml --workers 8
  daysim run --days 2 --seed 42 --output out --format duckdb
  daysim run --households 500 --fail-fast`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Worker goroutines (0 = GOMAXPROCS)")
	runCmd.Flags().IntVar(&daysFlag, "days", 0, "Days to simulate per household")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Run random seed")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory")
	runCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (parquet, duckdb)")
	runCmd.Flags().StringVar(&regionFlag, "region", "", "Region policy (default, eu)")
	runCmd.Flags().BoolVar(&failFastFlag, "fail-fast", false, "Stop on the first faulted household")
	runCmd.Flags().IntVar(&householdsArg, "households", 0, "Synthetic households when no input files are configured")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	result, err := execute(cmd.Context(), cfg, runIO{
		out:      cmd.OutOrStdout(),
		log:      cmd.ErrOrStderr(),
		progress: !quiet,
		quiet:    quiet,
	})
	if err != nil {
		return err
	}
	if n := len(result.Summary.Faults); n > 0 {
		return simerrors.Newf(simerrors.CodeHousehold, "%d households faulted", n).
			WithContext("run_id", result.Summary.RunID)
	}
	return nil
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("workers") {
		cfg.Scheduler.Workers = workersFlag
	}
	if flags.Changed("days") {
		cfg.Simulation.Days = daysFlag
	}
	if flags.Changed("seed") {
		cfg.Simulation.RandomSeed = seedFlag
	}
	if flags.Changed("output") {
		cfg.Output.Dir = outputFlag
	}
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("region") {
		cfg.Simulation.Region = regionFlag
	}
	if flags.Changed("fail-fast") {
		cfg.Scheduler.FailFast = failFastFlag
	}
	if flags.Changed("households") {
		cfg.Input.SyntheticHouseholds = householdsArg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runIO struct {
	out      io.Writer
	log      io.Writer
	progress bool
	quiet    bool
}

type runResult struct {
	Summary  *scheduler.Summary
	Files    []string
	Rows     map[string]int64
	Report   string
	Uploaded []string
}

// checkpointKey identifies a run by everything that determines its output,
// so a rerun with the same inputs resumes where the last one stopped.
func checkpointKey(cfg *config.Config) string {
	in := cfg.Input
	name := fmt.Sprintf("seed=%d|days=%d|region=%s|hh=%s|persons=%s|parcels=%s|synthetic=%d/%d|sample=%d/%d|format=%s|out=%s",
		cfg.Simulation.RandomSeed, cfg.Simulation.Days, cfg.Simulation.Region,
		in.Households, in.Persons, in.Parcels, in.SyntheticHouseholds, in.SyntheticSeed,
		cfg.Scheduler.SamplingOneInX, cfg.Scheduler.SamplingStartWith,
		cfg.Output.Format, cfg.Output.Dir)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// execute wires the run from cfg. The configuration is not modified.
func execute(ctx context.Context, cfg *config.Config, rio runIO) (*runResult, error) {
	runID := uuid.NewString()
	logger := logging.New(cfg.Log.Level, rio.log, runID)

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	pop, err := population.Load(ctx, cfg.Input)
	if err != nil {
		return nil, err
	}
	logger.Info("population loaded",
		"households", len(pop.Households), "persons", pop.Persons(), "parcels", len(pop.Parcels))

	reg, err := registry.NewDefault(pop.Parcels.IDs())
	if err != nil {
		return nil, err
	}
	suite, err := reg.Resolve()
	if err != nil {
		return nil, err
	}
	policy, err := simulation.PolicyFor(cfg.Simulation.Region)
	if err != nil {
		return nil, err
	}
	sim := simulation.New(cfg.Simulation, suite, simulation.Deps{
		Parcels: pop.Parcels,
		Policy:  policy,
		Logger:  logger,
	})

	store, err := checkpoint.Open(cfg.Checkpoint, checkpointKey(cfg))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	exporter, err := writer.New(cfg.Output.Format, writer.FromOutput(cfg.Output, runID))
	if err != nil {
		return nil, err
	}

	if !rio.quiet {
		tui.PrintHeader(rio.out, version)
		tui.PrintPlan(rio.out, cfg, len(pop.Households))
	}

	var onExported func(int)
	if rio.progress {
		total := 0
		for _, hh := range pop.Households {
			if scheduler.Sampled(hh.ID, cfg.Scheduler.SamplingOneInX, cfg.Scheduler.SamplingStartWith) {
				total++
			}
		}
		bar := tui.ShowProgress(rio.log, int64(total), "simulating")
		defer bar.Finish()
		onExported = func(int) { _ = bar.Add(1) }
	}

	sched := scheduler.New(sim, scheduler.Options{
		Config:     cfg.Scheduler,
		RandomSeed: cfg.Simulation.RandomSeed,
		RunID:      runID,
		Exporter:   exporter,
		Checkpoint: store,
		Telemetry:  tp,
		Logger:     logger,
		OnExported: onExported,
	})
	summary, err := sched.Run(ctx, pop.Households)
	if err != nil {
		return nil, err
	}

	result := &runResult{
		Summary: summary,
		Files:   exporter.Files(),
		Rows:    exporter.RowsWritten(),
	}

	if cfg.Output.Report {
		path, err := report.Write(cfg.Output.Dir, report.Report{
			Version: version,
			Summary: summary,
			Rows:    result.Rows,
			Files:   result.Files,
		})
		if err != nil {
			return nil, err
		}
		result.Report = path
		logger.Info("report written", "path", path)
	}

	if cfg.Output.S3.Enabled {
		uploader, err := s3.NewUploader(ctx, s3.FromOutput(cfg.Output.S3))
		if err != nil {
			return nil, err
		}
		files := result.Files
		if result.Report != "" {
			files = append(append([]string(nil), files...), result.Report)
		}
		keys, err := uploader.UploadAll(ctx, runID, files)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			result.Uploaded = append(result.Uploaded, uploader.URI(k))
		}
		logger.Info("outputs uploaded", "bucket", cfg.Output.S3.Bucket, "objects", len(keys))
	}

	if !rio.quiet {
		shown := append([]string(nil), result.Files...)
		if result.Report != "" {
			shown = append(shown, result.Report)
		}
		tui.PrintSummary(rio.out, summary, result.Rows, shown)
	}
	return result, nil
}
