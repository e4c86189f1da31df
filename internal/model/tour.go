package model

import (
	"github.com/daysim/daysim/pkg/timewindow"
)

// Tour is a round trip from a base location to a destination and back.
// A subtour is a Tour whose ParentTour is set; its base is the parent's
// destination.
type Tour struct {
	PersonDay  *PersonDay
	Sequence   int
	ParentTour *Tour
	Subtours   []*Tour

	Purpose           Purpose
	OriginParcel      int
	DestinationParcel int
	Mode              Mode

	DestinationArrivalTime   int
	DestinationDepartureTime int

	HalfTours [2]*HalfTour

	// Links to joint records by sequence, 0 when unlinked.
	JointTourSequence       int
	FullHalfTourSequence    [2]int
	PartialHalfTourSequence [2]int

	DestinationSet    bool
	ModeTimeSet       bool
	HalfTourSimulated [2]bool
	SubtoursGenerated bool
	Finalized         bool

	IsValid bool

	// Window constrains the tour's times. Nil means the person's window.
	Window *timewindow.Window

	destinationWindow *timewindow.Window
}

// IsSubtour reports whether the tour is based at a parent tour's destination.
func (t *Tour) IsSubtour() bool {
	return t.ParentTour != nil
}

// IsUsualLocationMandatory reports whether this is a home-based work or
// school tour to the person's usual location.
func (t *Tour) IsUsualLocationMandatory() bool {
	if t.IsSubtour() || !t.Purpose.IsMandatory() {
		return false
	}
	usual := t.PersonDay.Person.UsualLocation(t.Purpose)
	return usual != 0 && t.DestinationParcel == usual
}

// IsJoint reports whether the tour belongs to a joint tour.
func (t *Tour) IsJoint() bool {
	return t.JointTourSequence != 0
}

// TimeWindow returns the window the tour's times must fit in.
func (t *Tour) TimeWindow() *timewindow.Window {
	if t.Window != nil {
		return t.Window
	}
	return t.PersonDay.Window
}

// DestinationWindow is the window shared by the tour's subtours: only the
// stay at the destination is available.
func (t *Tour) DestinationWindow() *timewindow.Window {
	if t.destinationWindow == nil {
		w := timewindow.New()
		w.SetBusyMinutes(timewindow.FirstMinute, t.DestinationArrivalTime)
		w.SetBusyMinutes(t.DestinationDepartureTime+1, timewindow.MinutesInDay+1)
		t.destinationWindow = w
	}
	return t.destinationWindow
}

// CreateSubtour adds a subtour based at the tour's destination.
func (t *Tour) CreateSubtour(purpose Purpose) *Tour {
	st := t.PersonDay.newTour(purpose, t.DestinationParcel)
	st.ParentTour = t
	st.Window = t.DestinationWindow()
	t.Subtours = append(t.Subtours, st)
	return st
}

// SetDestination fixes the destination parcel.
func (t *Tour) SetDestination(parcel int) {
	t.DestinationParcel = parcel
	t.DestinationSet = true
}

// SetModeTime fixes the mode and the destination arrival and departure.
func (t *Tour) SetModeTime(mode Mode, arrival, departure int) {
	t.Mode = mode
	t.DestinationArrivalTime = arrival
	t.DestinationDepartureTime = departure
	t.ModeTimeSet = true
	t.destinationWindow = nil
}

// HalfTour returns the half tour for a direction, creating it on first use.
func (t *Tour) HalfTour(dir Direction) *HalfTour {
	i := dir.index()
	if t.HalfTours[i] == nil {
		t.HalfTours[i] = &HalfTour{Tour: t, Direction: dir}
	}
	return t.HalfTours[i]
}

// IsHalfTourSimulated reports whether the half tour has its trips.
func (t *Tour) IsHalfTourSimulated(dir Direction) bool {
	return t.HalfTourSimulated[dir.index()]
}

// SetHalfTourSimulated marks the half tour as simulated.
func (t *Tour) SetHalfTourSimulated(dir Direction) {
	t.HalfTourSimulated[dir.index()] = true
}

// FullHalfTour returns the full joint half tour sequence for a direction.
func (t *Tour) FullHalfTour(dir Direction) int {
	return t.FullHalfTourSequence[dir.index()]
}

// PartialHalfTour returns the partial joint half tour sequence for a
// direction.
func (t *Tour) PartialHalfTour(dir Direction) int {
	return t.PartialHalfTourSequence[dir.index()]
}

// LinkFullHalfTour links the tour to a full joint half tour.
func (t *Tour) LinkFullHalfTour(dir Direction, sequence int) {
	t.FullHalfTourSequence[dir.index()] = sequence
}

// LinkPartialHalfTour links the tour to a partial joint half tour.
func (t *Tour) LinkPartialHalfTour(dir Direction, sequence int) {
	t.PartialHalfTourSequence[dir.index()] = sequence
}

// State derives the tour's position in its sub-state machine.
func (t *Tour) State() TourState {
	switch {
	case t.Finalized:
		return TourFinalized
	case t.HalfTourSimulated[0] || t.HalfTourSimulated[1]:
		return TourHalfTourSimulated
	case t.ModeTimeSet:
		return TourModeTimeSet
	case t.DestinationSet:
		return TourDestinationSet
	default:
		return TourDestinationUnset
	}
}

// Invalidate marks the tour and its person day invalid.
func (t *Tour) Invalidate() {
	t.IsValid = false
	if t.PersonDay != nil {
		t.PersonDay.Invalidate()
	}
}

// Valid reports whether the tour and its subtours are valid.
func (t *Tour) Valid() bool {
	for _, st := range t.Subtours {
		if !st.Valid() {
			t.IsValid = false
		}
	}
	return t.IsValid
}

// StartTime returns the departure of the first outbound trip, or the
// destination arrival when no trips exist yet.
func (t *Tour) StartTime() int {
	if h := t.HalfTours[0]; h != nil && len(h.Trips) > 0 {
		return h.TravelOrder()[0].DepartureTime
	}
	return t.DestinationArrivalTime
}

// EndTime returns the arrival of the last return trip, or the destination
// departure when no trips exist yet.
func (t *Tour) EndTime() int {
	if h := t.HalfTours[1]; h != nil && len(h.Trips) > 0 {
		return h.Trips[len(h.Trips)-1].ArrivalTime
	}
	return t.DestinationDepartureTime
}

// HalfTour is one direction of a tour. Trips are kept in generation order,
// which walks from the tour destination toward the tour origin.
type HalfTour struct {
	Tour           *Tour
	Direction      Direction
	Trips          []*Trip
	SimulatedTrips int
}

// CreateTrip appends the next trip in generation order.
func (h *HalfTour) CreateTrip() *Trip {
	trip := &Trip{
		Sequence:  len(h.Trips) + 1,
		Direction: h.Direction,
	}
	h.Trips = append(h.Trips, trip)
	return trip
}

// TravelOrder returns the trips in the order they are travelled.
// Outbound trips are generated backward in time.
func (h *HalfTour) TravelOrder() []*Trip {
	if h.Direction == DestinationToOrigin {
		return h.Trips
	}
	ordered := make([]*Trip, len(h.Trips))
	for i, trip := range h.Trips {
		ordered[len(h.Trips)-1-i] = trip
	}
	return ordered
}

// Trip is one unbroken movement between two parcels.
type Trip struct {
	Sequence  int
	Direction Direction

	OriginParcel       int
	DestinationParcel  int
	OriginPurpose      Purpose
	DestinationPurpose Purpose

	Mode          Mode
	DepartureTime int
	ArrivalTime   int

	// IsToTourOrigin marks the last trip of the generation walk, which ends
	// (outbound: starts) at the tour origin.
	IsToTourOrigin bool
	IsCloned       bool
	// IsEscortStop marks a stop forced by a partial joint half tour.
	IsEscortStop bool
}

// Duration returns the travel time in minutes.
func (t *Trip) Duration() int {
	return t.ArrivalTime - t.DepartureTime
}
