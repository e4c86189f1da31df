package models

import (
	"math"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/skim"
	"github.com/daysim/daysim/pkg/timewindow"
)

const (
	destinationSample = 10
	// distanceDecay is the distance, in meters, over which attraction falls
	// by a factor of e.
	distanceDecay = 5000.0
)

// Destination samples candidate parcels and picks one with probability
// decaying in distance from the tour origin. Mandatory tours go to the
// usual location when the person has one.
type Destination struct {
	parcels []int
}

// NewDestination creates a destination model over the candidate parcels.
func NewDestination(parcels []int) *Destination {
	return &Destination{parcels: parcels}
}

func (*Destination) Name() string { return "reference_destination" }

func (d *Destination) RunTour(env *choice.Env, t *model.Tour) (choice.Status, error) {
	if usual := t.PersonDay.Person.UsualLocation(t.Purpose); usual != 0 && !t.IsSubtour() {
		t.SetDestination(usual)
		return choice.OK, nil
	}
	if len(d.parcels) == 0 {
		return choice.Invalid, simerrors.New(simerrors.CodeUnknownParcel, "no candidate parcels for destination choice")
	}

	origin := env.Parcel(t.OriginParcel)
	candidates := make([]int, destinationSample)
	weights := make([]float64, destinationSample)
	available := make([]bool, destinationSample)
	for i := range candidates {
		candidates[i] = d.parcels[env.Random.Intn(len(d.parcels))]
		dist := skim.Distance(origin, env.Parcel(candidates[i]))
		weights[i] = math.Exp(-dist / distanceDecay)
		available[i] = candidates[i] != t.OriginParcel
	}
	if !anyTrue(available) {
		return choice.Invalid, nil
	}
	t.SetDestination(candidates[pick(env.Random.Uniform01(), weights, available)])
	return choice.OK, nil
}

func anyTrue(v []bool) bool {
	for _, b := range v {
		if b {
			return true
		}
	}
	return false
}

// Typical stay at the destination, in minutes.
var stayMinutes = map[model.Purpose]int{
	model.PurposeWork:             480,
	model.PurposeSchool:           390,
	model.PurposeEscort:           10,
	model.PurposePersonalBusiness: 60,
	model.PurposeShopping:         45,
	model.PurposeMeal:             50,
	model.PurposeSocial:           120,
	model.PurposeRecreation:       120,
	model.PurposeMedical:          60,
}

// ModeTime chooses a mode from distance and car access, then places the
// stay in the free span closest to a preferred arrival time.
type ModeTime struct{}

func (ModeTime) Name() string { return "reference_mode_time" }

func (ModeTime) RunTour(env *choice.Env, t *model.Tour) (choice.Status, error) {
	from, to := env.Parcel(t.OriginParcel), env.Parcel(t.DestinationParcel)
	mode := chooseTourMode(env, t, skim.Distance(from, to))

	stay := stayMinutes[t.Purpose]
	if stay == 0 {
		stay = 60
	}
	if t.IsSubtour() && stay > 60 {
		stay = 60
	}
	// +/- 25 percent.
	stay = stay*3/4 + env.Random.Intn(stay/2+1)

	preferred := preferredArrival(env, t)
	travel := skim.TravelMinutes(env.Impedance, mode, preferred, from, to)

	arr := placeStay(t.TimeWindow(), preferred, stay, travel)
	if arr == timewindow.NoMinute {
		return choice.Invalid, nil
	}
	t.SetModeTime(mode, arr, arr+stay)
	return choice.OK, nil
}

// placeStay returns the arrival closest to preferred that leaves travel
// minutes free on both sides of the stay, or NoMinute.
func placeStay(w *timewindow.Window, preferred, stay, travel int) int {
	if span, ok := w.AvailableSpan(preferred); ok {
		if arr, fits := fitInSpan(span, preferred, stay, travel); fits && arr == preferred {
			return arr
		}
	}

	bestArr, bestGap := timewindow.NoMinute, math.MaxInt
	for _, span := range w.AvailableSpans(stay + 2*travel + 2) {
		arr, fits := fitInSpan(span, preferred, stay, travel)
		if !fits {
			continue
		}
		if gap := absInt(arr - preferred); gap < bestGap {
			bestArr, bestGap = arr, gap
		}
	}
	return bestArr
}

func fitInSpan(span timewindow.Span, preferred, stay, travel int) (int, bool) {
	lo := span.Start + travel + 1
	hi := span.End - travel - stay - 1
	if hi < lo {
		return 0, false
	}
	return clampInt(preferred, lo, hi), true
}

func preferredArrival(env *choice.Env, t *model.Tour) int {
	switch {
	case t.IsSubtour():
		mid := (t.ParentTour.DestinationArrivalTime + t.ParentTour.DestinationDepartureTime) / 2
		return mid - 30 + env.Random.Intn(61)
	case t.Purpose == model.PurposeWork:
		return 420 + env.Random.Intn(181)
	case t.Purpose == model.PurposeSchool:
		return 450 + env.Random.Intn(61)
	default:
		return 540 + env.Random.Intn(601)
	}
}

func chooseTourMode(env *choice.Env, t *model.Tour, meters float64) model.Mode {
	person := t.PersonDay.Person
	hh := t.PersonDay.HouseholdDay.Household
	drives := person.Age >= env.DrivingAge && hh.Vehicles > 0
	shared := t.IsJoint() || t.FullHalfTour(model.OriginToDestination) != 0 ||
		t.FullHalfTour(model.DestinationToOrigin) != 0 || t.PartialHalfTour(model.OriginToDestination) != 0 ||
		t.PartialHalfTour(model.DestinationToOrigin) != 0

	switch {
	case meters < 1500 && t.Purpose != model.PurposeEscort:
		return model.ModeWalk
	case shared && drives:
		return model.ModeHOVDriver
	case shared:
		return model.ModeHOVPassenger
	case t.Purpose == model.PurposeSchool && person.IsChild():
		if env.Random.Uniform01() < 0.5 {
			return model.ModeSchoolBus
		}
		return model.ModeHOVPassenger
	case meters < 5000 && env.Random.Uniform01() < 0.1:
		return model.ModeBike
	case drives:
		return model.ModeSOV
	default:
		return model.ModeTransit
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
