package choice

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/internal/random"
	"github.com/daysim/daysim/pkg/skim"
)

// Status is the soft outcome of a model run.
type Status int

const (
	// OK means the model produced a usable result.
	OK Status = iota
	// Invalid means the result is inconsistent; the attempt must be retried.
	Invalid
)

// IsValid reports whether the status is OK.
func (s Status) IsValid() bool {
	return s == OK
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == OK {
		return "ok"
	}
	return "invalid"
}

// Env is the per-household context passed to every model call. Impedance
// and Parcels are shared read-only; Random belongs to the household.
type Env struct {
	Random         *random.Stream
	Impedance      skim.Impedance
	Parcels        model.ParcelLookup
	Day            int
	EstimationMode bool
	DrivingAge     int
}

// Parcel returns a parcel by id, or a zero Parcel carrying only the id.
func (e *Env) Parcel(id int) model.Parcel {
	if e.Parcels != nil {
		if p, ok := e.Parcels.Parcel(id); ok {
			return p
		}
	}
	return model.Parcel{ID: id}
}

// Model is implemented by every choice model.
type Model interface {
	Name() string
}

// HouseholdModel runs once per household before any day is simulated.
type HouseholdModel interface {
	Model
	RunHousehold(env *Env, hh *model.Household) (Status, error)
}

// HouseholdDayModel runs once per attempt on the whole household day.
type HouseholdDayModel interface {
	Model
	RunHouseholdDay(env *Env, day *model.HouseholdDay) (Status, error)
}

// PersonDayModel runs once per attempt on each person day.
type PersonDayModel interface {
	Model
	RunPersonDay(env *Env, pd *model.PersonDay) (Status, error)
}

// Generation is the input to a generation choice.
type Generation struct {
	Day *model.HouseholdDay
	// PersonDay is set for individual generation, nil for household level.
	PersonDay *model.PersonDay
	// Tour is the parent tour for subtour generation.
	Tour *model.Tour
	// Available flags each alternative; alternative 0 is "none" and is
	// always available.
	Available []bool
	Iteration int
}

// GenerationModel picks one alternative index.
type GenerationModel interface {
	Model
	Choose(env *Env, g Generation) (int, Status, error)
}

// Participation is the input to a participation choice.
type Participation struct {
	Day         *model.HouseholdDay
	Candidates  []*model.PersonDay
	Available   []bool
	Alternative int
	Purpose     model.Purpose
}

// ParticipationModel returns a 0/1 vector over the candidates.
type ParticipationModel interface {
	Model
	Participate(env *Env, p Participation) ([]bool, Status, error)
}

// ChauffeurModel picks the driver of a partial joint half tour as an index
// into candidates.
type ChauffeurModel interface {
	Model
	ChooseChauffeur(env *Env, day *model.HouseholdDay, candidates []*model.PersonDay) (int, Status, error)
}

// TourModel decides tour level attributes such as destination or mode and
// times.
type TourModel interface {
	Model
	RunTour(env *Env, tour *model.Tour) (Status, error)
}

// TripContext locates a trip inside its half tour. Anchor is the time the
// trip must respect: outbound trips arrive no later than it, return trips
// depart no earlier.
type TripContext struct {
	Tour     *model.Tour
	HalfTour *model.HalfTour
	Trip     *model.Trip
	Anchor   int
}

// NearParcel returns the trip end already fixed by the generation walk.
func (tc TripContext) NearParcel() int {
	if tc.HalfTour.Direction == model.OriginToDestination {
		return tc.Trip.DestinationParcel
	}
	return tc.Trip.OriginParcel
}

// SetStop fixes the far trip end to an intermediate stop.
func (tc TripContext) SetStop(parcel int, purpose model.Purpose) {
	if tc.HalfTour.Direction == model.OriginToDestination {
		tc.Trip.OriginParcel = parcel
		tc.Trip.OriginPurpose = purpose
		return
	}
	tc.Trip.DestinationParcel = parcel
	tc.Trip.DestinationPurpose = purpose
}

// StopGenerationModel decides whether the current trip ends at an
// intermediate stop rather than the tour origin.
type StopGenerationModel interface {
	Model
	HasStop(env *Env, tc TripContext) (bool, Status, error)
}

// TripModel decides one trip attribute: stop location, mode or time.
type TripModel interface {
	Model
	RunTrip(env *Env, tc TripContext) (Status, error)
}

// Suite holds a validated, typed binding for every model ID.
type Suite struct {
	VehicleAvailability          HouseholdModel
	HouseholdDayPattern          HouseholdDayModel
	PrimaryPriorityTime          HouseholdDayModel
	MandatoryTourGeneration      PersonDayModel
	JointHalfTourGeneration      GenerationModel
	FullHalfTourParticipation    ParticipationModel
	PartialHalfTourParticipation ParticipationModel
	PartialHalfTourChauffeur     ChauffeurModel
	JointTourGeneration          GenerationModel
	JointTourParticipation       ParticipationModel
	IndividualTourGeneration     GenerationModel
	TourDestination              TourModel
	TourModeTime                 TourModel
	WorkBasedSubtourGeneration   GenerationModel
	IntermediateStopGeneration   StopGenerationModel
	IntermediateStopLocation     TripModel
	TripMode                     TripModel
	TripTime                     TripModel
}
