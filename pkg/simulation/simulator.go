// Package simulation drives the household-day state machine.
//
// For each household the Simulator runs the household level models once, then
// simulates every day through a bounded retry loop. Each attempt runs the
// stages in a fixed order, because later stages carve their times out of the
// windows left by earlier ones:
//
//	household-day models
//	person-day mandatory tour generation
//	joint half tour generation
//	joint tour generation
//	individual tour generation
//	joint half tour resolution
//	mandatory tours (with work-based subtours)
//	joint tours
//	non-mandatory tours
//
// A stage that leaves the day invalid ends the attempt.
package simulation

import (
	"context"
	"io"
	"log/slog"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/skim"
)

// Deps are the read-only collaborators shared by all workers.
type Deps struct {
	Impedance skim.Impedance
	Parcels   model.ParcelLookup
	Policy    Policy
	Logger    *slog.Logger
}

// Simulator simulates households. It holds no mutable state and is safe
// for concurrent use as long as each goroutine passes its own WorkerState.
type Simulator struct {
	cfg    config.Simulation
	suite  choice.Suite
	deps   Deps
	logger *slog.Logger
}

// New creates a Simulator.
func New(cfg config.Simulation, suite choice.Suite, deps Deps) *Simulator {
	if deps.Impedance == nil {
		deps.Impedance = skim.DefaultStraightLine()
	}
	if deps.Policy.ParticipationPriority == nil {
		deps.Policy = DefaultPolicy()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Simulator{
		cfg:    cfg,
		suite:  suite,
		deps:   deps,
		logger: logger,
	}
}

// SimulateHousehold simulates every configured day of one household.
// Soft invalidity never surfaces as an error: an invalid day is retried and,
// past the attempt limit, returned with Abandoned set. Errors are hard faults
// carrying the identity of the failing entity; panics are recovered into
// CodePanic errors.
func (s *Simulator) SimulateHousehold(ctx context.Context, w *WorkerState, hh *model.Household) (days []*model.HouseholdDay, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = simerrors.Panic(r).WithContext(simerrors.KeyHousehold, hh.ID)
			days = nil
		}
		if err != nil {
			w.Counters.Faults++
		}
	}()

	w.Counters.Households++
	w.stream.Reseed(hh.RandomSeed)

	run := &householdRun{
		sim:    s,
		w:      w,
		suite:  &s.suite,
		policy: s.deps.Policy,
		hh:     hh,
		env: &choice.Env{
			Random:         w.stream,
			Impedance:      s.deps.Impedance,
			Parcels:        s.deps.Parcels,
			EstimationMode: s.cfg.EstimationMode,
			DrivingAge:     s.deps.Policy.DrivingAge,
		},
	}

	if err := run.runHouseholdModels(); err != nil {
		return nil, householdError(err, hh)
	}

	days = make([]*model.HouseholdDay, 0, s.cfg.Days)
	for day := 1; day <= s.cfg.Days; day++ {
		if ctx.Err() != nil {
			return nil, householdError(simerrors.ContextCanceled("simulate household"), hh)
		}
		d := model.NewHouseholdDay(hh, day)
		run.day = d
		run.env.Day = day

		if err := run.simulateDay(ctx); err != nil {
			return nil, householdError(err, hh)
		}
		w.Counters.addDay(d)
		days = append(days, d)
	}
	return days, nil
}

// householdRun carries the state of one household through its days.
type householdRun struct {
	sim    *Simulator
	w      *WorkerState
	suite  *choice.Suite
	policy Policy
	env    *choice.Env
	hh     *model.Household
	day    *model.HouseholdDay
}

func (r *householdRun) runHouseholdModels() error {
	m := r.suite.VehicleAvailability
	status, err := m.RunHousehold(r.env, r.hh)
	if err := r.record(choice.VehicleAvailability, status, err); err != nil {
		return err
	}
	if !status.IsValid() {
		// Household level models are not retried.
		r.sim.logger.Warn("household model reported invalid outcome",
			"household", r.hh.ID, "model", m.Name())
	}
	return nil
}

// simulateDay runs the attempt loop for r.day.
func (r *householdRun) simulateDay(ctx context.Context) error {
	d := r.day
	for {
		d.Reset()
		r.env.Random.ResetSynchronization(r.env.Random.NextSynchronizationSeed())

		if err := r.attempt(); err != nil {
			return simerrors.Wrap(err, simerrors.CodeHouseholdDay, "household day failed").
				WithContext(simerrors.KeyDay, d.Day).
				WithContext("attempt", d.AttemptedSimulations+1)
		}
		if d.Valid() {
			break
		}

		d.AttemptedSimulations++
		r.w.Counters.InvalidAttempts++
		for _, pd := range d.PersonDays {
			if !pd.IsValid {
				pd.AttemptedSimulations++
			}
		}

		if r.sim.cfg.EstimationMode || d.AttemptedSimulations >= r.sim.cfg.InvalidAttemptsBeforeContinue {
			d.Abandoned = true
			r.sim.logger.Warn("household day abandoned after invalid attempts",
				"household", r.hh.ID, "day", d.Day, "attempts", d.AttemptedSimulations)
			return nil
		}
		r.sim.logger.Debug("retrying invalid household day",
			"household", r.hh.ID, "day", d.Day, "attempt", d.AttemptedSimulations)

		if ctx.Err() != nil {
			return simerrors.ContextCanceled("simulate household day")
		}
	}

	for _, pd := range d.PersonDays {
		if pd.SimulatedTours[model.PurposeWork] > 0 {
			pd.Person.MadeWorkTour = true
		}
		if pd.SimulatedTours[model.PurposeSchool] > 0 {
			pd.Person.MadeSchoolTour = true
		}
	}
	return nil
}

type stage struct {
	name string
	run  func() error
}

// attempt runs one pass of the stages, stopping at the first stage that
// leaves the day invalid.
func (r *householdRun) attempt() error {
	stages := []stage{
		{"household_day_models", r.runHouseholdDayModels},
		{"mandatory_tour_generation", r.generateMandatoryTours},
		{"joint_half_tour_generation", r.generateJointHalfTours},
		{"joint_tour_generation", r.generateJointTours},
		{"individual_tour_generation", r.generateIndividualTours},
		{"joint_half_tour_resolution", r.resolveJointHalfTours},
		{"mandatory_tours", r.simulateMandatoryTours},
		{"joint_tours", r.simulateJointTours},
		{"non_mandatory_tours", r.simulateNonMandatoryTours},
	}
	for _, st := range stages {
		if err := st.run(); err != nil {
			if se, ok := err.(*simerrors.SimError); ok {
				return se.WithContext("stage", st.name)
			}
			return simerrors.Wrap(err, simerrors.CodeHouseholdDay, "stage failed").WithContext("stage", st.name)
		}
		if !r.day.Valid() {
			r.sim.logger.Debug("attempt invalid", "household", r.hh.ID, "day", r.day.Day, "stage", st.name)
			return nil
		}
	}
	return nil
}

// record counts a model call and wraps its error.
func (r *householdRun) record(id choice.ID, status choice.Status, err error) error {
	r.w.Counters.Models.Record(id, status)
	if err != nil {
		return simerrors.Wrap(err, simerrors.CodeModel, "model failed").
			WithContext(simerrors.KeyModel, id.String())
	}
	return nil
}

func householdError(err error, hh *model.Household) error {
	return simerrors.Wrap(err, simerrors.CodeHousehold, "household simulation failed").
		WithContext(simerrors.KeyHousehold, hh.ID)
}

func personDayError(err error, pd *model.PersonDay) error {
	return participantError(err, pd.Person.Sequence)
}

// participantError attributes a fault to a person by sequence, for joint
// records whose participant may not resolve to a person day.
func participantError(err error, person int) error {
	return simerrors.Wrap(err, simerrors.CodePersonDay, "person day failed").
		WithContext(simerrors.KeyPerson, person)
}

func tourError(err error, t *model.Tour) error {
	if t.IsSubtour() {
		return simerrors.Wrap(err, simerrors.CodeSubtour, "subtour failed").
			WithContext(simerrors.KeyPerson, t.PersonDay.Person.Sequence).
			WithContext(simerrors.KeyTour, t.ParentTour.Sequence).
			WithContext(simerrors.KeySubtour, t.Sequence)
	}
	return simerrors.Wrap(err, simerrors.CodeTour, "tour failed").
		WithContext(simerrors.KeyPerson, t.PersonDay.Person.Sequence).
		WithContext(simerrors.KeyTour, t.Sequence)
}

func tripError(err error, t *model.Tour, trip *model.Trip) error {
	return simerrors.Wrap(err, simerrors.CodeTrip, "trip failed").
		WithContext(simerrors.KeyPerson, t.PersonDay.Person.Sequence).
		WithContext(simerrors.KeyTour, t.Sequence).
		WithContext(simerrors.KeyDirection, trip.Direction.String()).
		WithContext(simerrors.KeyTrip, trip.Sequence)
}

func invariantError(format string, args ...interface{}) error {
	return simerrors.Newf(simerrors.CodeInvariant, format, args...)
}
