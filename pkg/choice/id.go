// Package choice defines the contract between the simulator and the
// pluggable choice models it sequences.
//
// Models never throw for behavioral failures: they return Invalid, which
// marks the current attempt invalid and lets the orchestrator retry. A
// returned error is a hard fault for the household.
package choice

import "fmt"

// ID identifies a model slot. The set is closed; every ID must be bound in
// the registry before a run starts.
type ID int

const (
	VehicleAvailability ID = iota + 1
	HouseholdDayPattern
	PrimaryPriorityTime
	MandatoryTourGeneration
	JointHalfTourGeneration
	FullHalfTourParticipation
	PartialHalfTourParticipation
	PartialHalfTourChauffeur
	JointTourGeneration
	JointTourParticipation
	IndividualTourGeneration
	TourDestination
	TourModeTime
	WorkBasedSubtourGeneration
	IntermediateStopGeneration
	IntermediateStopLocation
	TripMode
	TripTime

	// IDCount is one past the last ID.
	IDCount
)

var idNames = map[ID]string{
	VehicleAvailability:          "vehicle_availability",
	HouseholdDayPattern:          "household_day_pattern",
	PrimaryPriorityTime:          "primary_priority_time",
	MandatoryTourGeneration:      "mandatory_tour_generation",
	JointHalfTourGeneration:      "joint_half_tour_generation",
	FullHalfTourParticipation:    "full_half_tour_participation",
	PartialHalfTourParticipation: "partial_half_tour_participation",
	PartialHalfTourChauffeur:     "partial_half_tour_chauffeur",
	JointTourGeneration:          "joint_tour_generation",
	JointTourParticipation:       "joint_tour_participation",
	IndividualTourGeneration:     "individual_tour_generation",
	TourDestination:              "tour_destination",
	TourModeTime:                 "tour_mode_time",
	WorkBasedSubtourGeneration:   "work_based_subtour_generation",
	IntermediateStopGeneration:   "intermediate_stop_generation",
	IntermediateStopLocation:     "intermediate_stop_location",
	TripMode:                     "trip_mode",
	TripTime:                     "trip_time",
}

var idKinds = map[ID]Kind{
	VehicleAvailability:          KindHousehold,
	HouseholdDayPattern:          KindHouseholdDay,
	PrimaryPriorityTime:          KindHouseholdDay,
	MandatoryTourGeneration:      KindPersonDay,
	JointHalfTourGeneration:      KindGeneration,
	FullHalfTourParticipation:    KindParticipation,
	PartialHalfTourParticipation: KindParticipation,
	PartialHalfTourChauffeur:     KindChauffeur,
	JointTourGeneration:          KindGeneration,
	JointTourParticipation:       KindParticipation,
	IndividualTourGeneration:     KindGeneration,
	TourDestination:              KindTour,
	TourModeTime:                 KindTour,
	WorkBasedSubtourGeneration:   KindGeneration,
	IntermediateStopGeneration:   KindStopGeneration,
	IntermediateStopLocation:     KindTrip,
	TripMode:                     KindTrip,
	TripTime:                     KindTrip,
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("model(%d)", int(id))
}

// Valid reports whether id is part of the closed set.
func (id ID) Valid() bool {
	return id >= VehicleAvailability && id < IDCount
}

// Kind returns the interface a model bound to id must implement.
func (id ID) Kind() Kind {
	return idKinds[id]
}

// AllIDs returns every model ID in stage order.
func AllIDs() []ID {
	ids := make([]ID, 0, int(IDCount)-1)
	for id := VehicleAvailability; id < IDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// ParseID resolves a model name.
func ParseID(name string) (ID, bool) {
	for id, n := range idNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Kind is the call shape of a model.
type Kind int

const (
	KindUnknown Kind = iota
	KindHousehold
	KindHouseholdDay
	KindPersonDay
	KindGeneration
	KindParticipation
	KindChauffeur
	KindTour
	KindStopGeneration
	KindTrip
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindHousehold:
		return "household"
	case KindHouseholdDay:
		return "household_day"
	case KindPersonDay:
		return "person_day"
	case KindGeneration:
		return "generation"
	case KindParticipation:
		return "participation"
	case KindChauffeur:
		return "chauffeur"
	case KindTour:
		return "tour"
	case KindStopGeneration:
		return "stop_generation"
	case KindTrip:
		return "trip"
	default:
		return "unknown"
	}
}

// Accepts reports whether m implements the interface required by k.
func (k Kind) Accepts(m Model) bool {
	switch k {
	case KindHousehold:
		_, ok := m.(HouseholdModel)
		return ok
	case KindHouseholdDay:
		_, ok := m.(HouseholdDayModel)
		return ok
	case KindPersonDay:
		_, ok := m.(PersonDayModel)
		return ok
	case KindGeneration:
		_, ok := m.(GenerationModel)
		return ok
	case KindParticipation:
		_, ok := m.(ParticipationModel)
		return ok
	case KindChauffeur:
		_, ok := m.(ChauffeurModel)
		return ok
	case KindTour:
		_, ok := m.(TourModel)
		return ok
	case KindStopGeneration:
		_, ok := m.(StopGenerationModel)
		return ok
	case KindTrip:
		_, ok := m.(TripModel)
		return ok
	default:
		return false
	}
}
