package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/timewindow"
)

// simulateHalfTour generates the trips of one half tour. The walk starts at
// the tour destination and moves toward the tour origin, so outbound trips
// are produced backward in time. Each forced stop ends a trip at the given
// parcel as an escort stop before the stop model is consulted. Forced stops
// count toward MaxTripsPerHalfTour like modeled ones.
func (r *householdRun) simulateHalfTour(t *model.Tour, dir model.Direction, forcedStops []int) error {
	h := t.HalfTour(dir)
	outbound := dir == model.OriginToDestination

	anchor := t.DestinationDepartureTime
	if outbound {
		anchor = t.DestinationArrivalTime
	}
	originPurpose := model.PurposeNoneOrHome
	if t.IsSubtour() {
		originPurpose = model.PurposeWork
	}
	near, nearPurpose := t.DestinationParcel, t.Purpose

	for {
		trip := h.CreateTrip()
		if outbound {
			trip.DestinationParcel, trip.DestinationPurpose = near, nearPurpose
		} else {
			trip.OriginParcel, trip.OriginPurpose = near, nearPurpose
		}
		tc := choice.TripContext{Tour: t, HalfTour: h, Trip: trip, Anchor: anchor}

		stop, err := r.chooseStop(tc, &forcedStops)
		if err != nil {
			return tripError(err, t, trip)
		}
		if !t.IsValid {
			return nil
		}
		if !stop {
			tc.SetStop(t.OriginParcel, originPurpose)
			trip.IsToTourOrigin = true
		}

		for _, id := range []choice.ID{choice.TripMode, choice.TripTime} {
			m := r.suite.TripMode
			if id == choice.TripTime {
				m = r.suite.TripTime
			}
			status, err := m.RunTrip(r.env, tc)
			if err := r.record(id, status, err); err != nil {
				return tripError(err, t, trip)
			}
			if !status.IsValid() {
				t.Invalidate()
				return nil
			}
		}
		h.SimulatedTrips++

		if !tripTimesValid(trip, outbound, anchor) {
			t.Invalidate()
			return nil
		}
		if outbound {
			anchor = trip.DepartureTime
			near, nearPurpose = trip.OriginParcel, trip.OriginPurpose
		} else {
			anchor = trip.ArrivalTime
			near, nearPurpose = trip.DestinationParcel, trip.DestinationPurpose
		}
		if !stop {
			break
		}
	}

	t.SetHalfTourSimulated(dir)
	return nil
}

// chooseStop decides whether the trip ends at an intermediate stop and, if
// so, places it. It returns false when the trip runs to the tour origin.
func (r *householdRun) chooseStop(tc choice.TripContext, forced *[]int) (bool, error) {
	last := tc.HalfTour.SimulatedTrips+1 >= r.sim.cfg.MaxTripsPerHalfTour
	if len(*forced) > 0 {
		// Escort stops count against the cap; a half tour that cannot reach
		// every passenger is infeasible.
		if last {
			tc.Tour.Invalidate()
			return false, nil
		}
		tc.SetStop((*forced)[0], model.PurposeEscort)
		tc.Trip.IsEscortStop = true
		*forced = (*forced)[1:]
		return true, nil
	}
	if last {
		return false, nil
	}

	has, status, err := r.suite.IntermediateStopGeneration.HasStop(r.env, tc)
	if err := r.record(choice.IntermediateStopGeneration, status, err); err != nil {
		return false, err
	}
	if !status.IsValid() {
		tc.Tour.Invalidate()
		return false, nil
	}
	if !has {
		return false, nil
	}

	status, err = r.suite.IntermediateStopLocation.RunTrip(r.env, tc)
	if err := r.record(choice.IntermediateStopLocation, status, err); err != nil {
		return false, err
	}
	if !status.IsValid() {
		tc.Tour.Invalidate()
		return false, nil
	}
	if farParcel(tc) == 0 {
		return false, invariantError("stop location model returned ok without a parcel")
	}
	return true, nil
}

func farParcel(tc choice.TripContext) int {
	if tc.HalfTour.Direction == model.OriginToDestination {
		return tc.Trip.OriginParcel
	}
	return tc.Trip.DestinationParcel
}

// tripTimesValid checks a trip's times against the day and the anchor the
// walk has reached: outbound trips must arrive by it, return trips must
// leave after it.
func tripTimesValid(trip *model.Trip, outbound bool, anchor int) bool {
	dep, arr := trip.DepartureTime, trip.ArrivalTime
	if dep < timewindow.FirstMinute || dep > arr || arr > timewindow.MinutesInDay {
		return false
	}
	if outbound {
		return arr <= anchor
	}
	return dep >= anchor
}
