// Package registry binds choice models to their IDs.
// The set of IDs is closed: a registry must bind every ID, with a model of
// the right kind, before it can be resolved into a Suite.
package registry

import (
	"fmt"
	"sort"

	"github.com/daysim/daysim/pkg/choice"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Registry holds the model bound to each ID.
// It is built once at startup and read-only afterwards.
type Registry struct {
	models map[choice.ID]choice.Model
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models: make(map[choice.ID]choice.Model),
	}
}

// Register binds m to id, replacing any earlier binding.
func (r *Registry) Register(id choice.ID, m choice.Model) error {
	if !id.Valid() {
		return simerrors.Newf(simerrors.CodeRegistryClosed, "unknown model id %d", int(id))
	}
	if m == nil {
		return simerrors.New(simerrors.CodeRegistryClosed, "nil model").
			WithContext(simerrors.KeyModel, id.String())
	}
	if !id.Kind().Accepts(m) {
		return simerrors.Newf(simerrors.CodeRegistryClosed, "model %q is not a %s model", m.Name(), id.Kind()).
			WithContext(simerrors.KeyModel, id.String())
	}
	r.models[id] = m
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(id choice.ID, m choice.Model) *Registry {
	if err := r.Register(id, m); err != nil {
		panic(err)
	}
	return r
}

// Get returns the model bound to id.
func (r *Registry) Get(id choice.ID) (choice.Model, bool) {
	m, ok := r.models[id]
	return m, ok
}

// Missing lists the IDs without a binding.
func (r *Registry) Missing() []choice.ID {
	var missing []choice.ID
	for _, id := range choice.AllIDs() {
		if _, ok := r.models[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Validate checks that every ID is bound.
func (r *Registry) Validate() error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, id := range missing {
		names[i] = id.String()
	}
	sort.Strings(names)
	return simerrors.Newf(simerrors.CodeRegistryClosed, "%d models not registered", len(missing)).
		WithContext("missing", names)
}

// Resolve validates the registry and returns the typed suite.
func (r *Registry) Resolve() (choice.Suite, error) {
	if err := r.Validate(); err != nil {
		return choice.Suite{}, err
	}
	return choice.Suite{
		VehicleAvailability:          r.models[choice.VehicleAvailability].(choice.HouseholdModel),
		HouseholdDayPattern:          r.models[choice.HouseholdDayPattern].(choice.HouseholdDayModel),
		PrimaryPriorityTime:          r.models[choice.PrimaryPriorityTime].(choice.HouseholdDayModel),
		MandatoryTourGeneration:      r.models[choice.MandatoryTourGeneration].(choice.PersonDayModel),
		JointHalfTourGeneration:      r.models[choice.JointHalfTourGeneration].(choice.GenerationModel),
		FullHalfTourParticipation:    r.models[choice.FullHalfTourParticipation].(choice.ParticipationModel),
		PartialHalfTourParticipation: r.models[choice.PartialHalfTourParticipation].(choice.ParticipationModel),
		PartialHalfTourChauffeur:     r.models[choice.PartialHalfTourChauffeur].(choice.ChauffeurModel),
		JointTourGeneration:          r.models[choice.JointTourGeneration].(choice.GenerationModel),
		JointTourParticipation:       r.models[choice.JointTourParticipation].(choice.ParticipationModel),
		IndividualTourGeneration:     r.models[choice.IndividualTourGeneration].(choice.GenerationModel),
		TourDestination:              r.models[choice.TourDestination].(choice.TourModel),
		TourModeTime:                 r.models[choice.TourModeTime].(choice.TourModel),
		WorkBasedSubtourGeneration:   r.models[choice.WorkBasedSubtourGeneration].(choice.GenerationModel),
		IntermediateStopGeneration:   r.models[choice.IntermediateStopGeneration].(choice.StopGenerationModel),
		IntermediateStopLocation:     r.models[choice.IntermediateStopLocation].(choice.TripModel),
		TripMode:                     r.models[choice.TripMode].(choice.TripModel),
		TripTime:                     r.models[choice.TripTime].(choice.TripModel),
	}, nil
}

// Names lists "id=model" bindings in ID order.
func (r *Registry) Names() []string {
	var out []string
	for _, id := range choice.AllIDs() {
		if m, ok := r.models[id]; ok {
			out = append(out, fmt.Sprintf("%s=%s", id, m.Name()))
		}
	}
	return out
}
