// Package config loads the run configuration.
// Priority: defaults < file < env (DAYSIM_*) < flags.
//
// A loaded Config is treated as immutable: it is validated once and passed
// explicitly to the simulator and the scheduler.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Config holds all run configuration.
type Config struct {
	Version int `yaml:"version"`

	Simulation Simulation       `yaml:"simulation"`
	Scheduler  Scheduler        `yaml:"scheduler"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

// Simulation controls the household-day state machine.
type Simulation struct {
	RandomSeed int64 `yaml:"random_seed"`
	Days       int   `yaml:"days"`

	// InvalidAttemptsBeforeContinue bounds the retry loop of a household day.
	InvalidAttemptsBeforeContinue int  `yaml:"invalid_attempts_before_continue"`
	EstimationMode                bool `yaml:"estimation_mode"`

	MaxTripsPerHalfTour int `yaml:"max_trips_per_half_tour"`
	MaxJointHalfTours   int `yaml:"max_joint_half_tours"`
	MaxJointTours       int `yaml:"max_joint_tours"`
	MaxIndividualTours  int `yaml:"max_individual_tours"`
	MaxSubtours         int `yaml:"max_subtours"`

	// Region selects the region policy (see simulation.PolicyFor).
	Region string `yaml:"region"`
}

// Scheduler controls household partitioning and sampling.
type Scheduler struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS

	// A household is simulated when (id + SamplingStartWith) % SamplingOneInX == 0.
	SamplingOneInX    int `yaml:"sampling_one_in_x"`
	SamplingStartWith int `yaml:"sampling_start_with"`

	// FailFast stops the run on the first household fault instead of
	// recording it and moving on.
	FailFast   bool `yaml:"fail_fast"`
	BufferSize int  `yaml:"buffer_size"`
}

// InputConfig names the population source.
type InputConfig struct {
	Households string `yaml:"households"` // CSV
	Persons    string `yaml:"persons"`    // CSV
	Parcels    string `yaml:"parcels"`    // CSV

	// SyntheticHouseholds generates a population when no files are given.
	SyntheticHouseholds int   `yaml:"synthetic_households"`
	SyntheticSeed       int64 `yaml:"synthetic_seed"`
}

// OutputConfig controls export.
type OutputConfig struct {
	Dir         string   `yaml:"dir"`
	Format      string   `yaml:"format"`      // parquet | duckdb
	Compression string   `yaml:"compression"` // snappy | zstd | gzip | lz4 | none
	BatchSize   int      `yaml:"batch_size"`
	Report      bool     `yaml:"report"` // xlsx run report
	S3          S3Config `yaml:"s3"`
}

// S3Config uploads output files after the run.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// CheckpointConfig controls resume.
type CheckpointConfig struct {
	Backend   string        `yaml:"backend"` // none | file | redis
	Dir       string        `yaml:"dir"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// TelemetryConfig controls OTLP tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	Insecure      bool    `yaml:"insecure"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Simulation: Simulation{
			RandomSeed:                    1,
			Days:                          1,
			InvalidAttemptsBeforeContinue: 3,
			MaxTripsPerHalfTour:           10,
			MaxJointHalfTours:             4,
			MaxJointTours:                 8,
			MaxIndividualTours:            5,
			MaxSubtours:                   3,
			Region:                        "default",
		},
		Scheduler: Scheduler{
			Workers:        0,
			SamplingOneInX: 1,
			BufferSize:     256,
		},
		Input: InputConfig{
			SyntheticHouseholds: 1000,
			SyntheticSeed:       7,
		},
		Output: OutputConfig{
			Dir:         "output",
			Format:      "parquet",
			Compression: "snappy",
			BatchSize:   8192,
		},
		Checkpoint: CheckpointConfig{
			Backend:   "none",
			Dir:       filepath.Join(os.TempDir(), "daysim", "checkpoints"),
			RedisAddr: "localhost:6379",
			Prefix:    "daysim:done:",
			TTL:       7 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Endpoint:      "localhost:4317",
			Insecure:      true,
			SamplingRatio: 1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and DAYSIM_*
// environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, simerrors.FileNotFound(path)
			}
			return nil, simerrors.Wrap(err, simerrors.CodeConfigLoad, "read config")
		}
		// Decoding over the defaults keeps every field the file omits.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, simerrors.Wrap(err, simerrors.CodeConfigLoad, "parse config").
				WithContext("path", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from DAYSIM_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"DAYSIM_DAYS":                 &c.Simulation.Days,
		"DAYSIM_INVALID_ATTEMPTS":     &c.Simulation.InvalidAttemptsBeforeContinue,
		"DAYSIM_WORKERS":              &c.Scheduler.Workers,
		"DAYSIM_SAMPLING_ONE_IN_X":    &c.Scheduler.SamplingOneInX,
		"DAYSIM_SAMPLING_START_WITH":  &c.Scheduler.SamplingStartWith,
		"DAYSIM_SYNTHETIC_HOUSEHOLDS": &c.Input.SyntheticHouseholds,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return simerrors.Wrapf(err, simerrors.CodeConfigInvalid, "invalid %s", key)
			}
			*dst = n
		}
	}

	if v, ok := lookup("DAYSIM_RANDOM_SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return simerrors.Wrap(err, simerrors.CodeConfigInvalid, "invalid DAYSIM_RANDOM_SEED")
		}
		c.Simulation.RandomSeed = n
	}

	bools := map[string]*bool{
		"DAYSIM_ESTIMATION_MODE": &c.Simulation.EstimationMode,
		"DAYSIM_FAIL_FAST":       &c.Scheduler.FailFast,
		"DAYSIM_TELEMETRY":       &c.Telemetry.Enabled,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return simerrors.Wrapf(err, simerrors.CodeConfigInvalid, "invalid %s", key)
			}
			*dst = b
		}
	}

	strs := map[string]*string{
		"DAYSIM_REGION":             &c.Simulation.Region,
		"DAYSIM_OUTPUT_DIR":         &c.Output.Dir,
		"DAYSIM_OUTPUT_FORMAT":      &c.Output.Format,
		"DAYSIM_COMPRESSION":        &c.Output.Compression,
		"DAYSIM_CHECKPOINT_BACKEND": &c.Checkpoint.Backend,
		"DAYSIM_REDIS_ADDR":         &c.Checkpoint.RedisAddr,
		"DAYSIM_OTLP_ENDPOINT":      &c.Telemetry.Endpoint,
		"DAYSIM_LOG_LEVEL":          &c.Log.Level,
		"DAYSIM_S3_BUCKET":          &c.Output.S3.Bucket,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate rejects configurations the simulator cannot run.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	s := c.Simulation
	check(s.Days >= 1, "simulation.days must be >= 1, got %d", s.Days)
	check(s.InvalidAttemptsBeforeContinue >= 1, "simulation.invalid_attempts_before_continue must be >= 1, got %d", s.InvalidAttemptsBeforeContinue)
	check(s.MaxTripsPerHalfTour >= 1, "simulation.max_trips_per_half_tour must be >= 1, got %d", s.MaxTripsPerHalfTour)
	check(s.MaxJointHalfTours >= 0, "simulation.max_joint_half_tours must be >= 0")
	check(s.MaxJointTours >= 0, "simulation.max_joint_tours must be >= 0")
	check(s.MaxIndividualTours >= 0, "simulation.max_individual_tours must be >= 0")
	check(s.MaxSubtours >= 0, "simulation.max_subtours must be >= 0")

	check(c.Scheduler.Workers >= 0, "scheduler.workers must be >= 0")
	check(c.Scheduler.SamplingOneInX >= 1, "scheduler.sampling_one_in_x must be >= 1, got %d", c.Scheduler.SamplingOneInX)
	check(c.Scheduler.SamplingStartWith >= 0, "scheduler.sampling_start_with must be >= 0")

	check(oneOf(c.Output.Format, "parquet", "duckdb"), "output.format must be parquet or duckdb, got %q", c.Output.Format)
	check(oneOf(c.Checkpoint.Backend, "none", "file", "redis"), "checkpoint.backend must be none, file or redis, got %q", c.Checkpoint.Backend)
	check(oneOf(strings.ToLower(c.Log.Level), "debug", "info", "warn", "error"), "log.level %q unknown", c.Log.Level)
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1, "telemetry.sampling_ratio must be in [0,1]")
	if c.Output.S3.Enabled {
		check(c.Output.S3.Bucket != "", "output.s3.bucket is required when s3 upload is enabled")
	}

	if len(problems) > 0 {
		return simerrors.New(simerrors.CodeConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
