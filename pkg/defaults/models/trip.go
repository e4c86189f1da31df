package models

import (
	"math"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/skim"
)

// StopGeneration adds a stop with probability 0.2/(1+n), where n is the
// number of trips already made on the half tour.
type StopGeneration struct{}

func (StopGeneration) Name() string { return "reference_stop_generation" }

func (StopGeneration) HasStop(env *choice.Env, tc choice.TripContext) (bool, choice.Status, error) {
	p := 0.2 / float64(1+tc.HalfTour.SimulatedTrips)
	if tc.Tour.Purpose == model.PurposeEscort {
		p /= 2
	}
	return env.Random.Uniform01() < p, choice.OK, nil
}

var stopPurposes = []model.Purpose{
	model.PurposeEscort,
	model.PurposePersonalBusiness,
	model.PurposeShopping,
	model.PurposeMeal,
}

var stopPurposeWeights = []float64{0, 0.2, 0.35, 0.3, 0.15}

// detourDecay is the extra distance, in meters, over which a stop's
// attraction falls by a factor of e.
const detourDecay = 2000.0

// StopLocation samples parcels and weights them by the detour they add
// between the near trip end and the tour origin.
type StopLocation struct {
	parcels []int
}

// NewStopLocation creates a stop location model over the candidate parcels.
func NewStopLocation(parcels []int) *StopLocation {
	return &StopLocation{parcels: parcels}
}

func (*StopLocation) Name() string { return "reference_stop_location" }

func (s *StopLocation) RunTrip(env *choice.Env, tc choice.TripContext) (choice.Status, error) {
	if len(s.parcels) == 0 {
		return choice.Invalid, nil
	}
	near := env.Parcel(tc.NearParcel())
	origin := env.Parcel(tc.Tour.OriginParcel)
	direct := skim.Distance(near, origin)

	candidates := make([]int, destinationSample)
	weights := make([]float64, destinationSample)
	available := make([]bool, destinationSample)
	for i := range candidates {
		candidates[i] = s.parcels[env.Random.Intn(len(s.parcels))]
		c := env.Parcel(candidates[i])
		detour := skim.Distance(near, c) + skim.Distance(c, origin) - direct
		weights[i] = math.Exp(-detour / detourDecay)
		available[i] = candidates[i] != near.ID
	}
	if !anyTrue(available) {
		return choice.Invalid, nil
	}
	parcel := candidates[pick(env.Random.Uniform01(), weights, available)]

	avail := []bool{false, true, true, true, true}
	purpose := stopPurposes[pick(env.Random.Uniform01(), stopPurposeWeights, avail)-1]
	tc.SetStop(parcel, purpose)
	return choice.OK, nil
}

// TripMode follows the tour mode, letting transit and school bus riders
// walk short legs.
type TripMode struct{}

func (TripMode) Name() string { return "reference_trip_mode" }

func (TripMode) RunTrip(env *choice.Env, tc choice.TripContext) (choice.Status, error) {
	mode := tc.Tour.Mode
	switch mode {
	case model.ModeTransit, model.ModeSchoolBus:
		meters := skim.Distance(env.Parcel(tc.Trip.OriginParcel), env.Parcel(tc.Trip.DestinationParcel))
		if meters < 1000 {
			mode = model.ModeWalk
		}
	case model.ModeNone:
		mode = model.ModeWalk
	}
	tc.Trip.Mode = mode
	return choice.OK, nil
}

// TripTime chains trips from the anchor: outbound trips arrive before it,
// return trips leave after it. Every trip but the first of the walk also
// spends a dwell at the stop it leaves from.
type TripTime struct{}

func (TripTime) Name() string { return "reference_trip_time" }

func (TripTime) RunTrip(env *choice.Env, tc choice.TripContext) (choice.Status, error) {
	trip := tc.Trip
	travel := skim.TravelMinutes(env.Impedance, trip.Mode, tc.Anchor,
		env.Parcel(trip.OriginParcel), env.Parcel(trip.DestinationParcel))

	dwell := 0
	if tc.HalfTour.SimulatedTrips > 0 {
		dwell = 5 + env.Random.Intn(26)
		if previous := tc.HalfTour.Trips[tc.HalfTour.SimulatedTrips-1]; previous.IsEscortStop {
			dwell = 2
		}
	}

	if tc.HalfTour.Direction == model.OriginToDestination {
		trip.ArrivalTime = tc.Anchor - dwell
		trip.DepartureTime = trip.ArrivalTime - travel
	} else {
		trip.DepartureTime = tc.Anchor + dwell
		trip.ArrivalTime = trip.DepartureTime + travel
	}
	return choice.OK, nil
}
