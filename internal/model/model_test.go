package model

import "testing"

func testHousehold() *Household {
	return &Household{
		ID:              10,
		ResidenceParcel: 1,
		Vehicles:        1,
		Persons: []*Person{
			{Sequence: 1, Age: 40, Type: PersonTypeFullTimeWorker, UsualWorkParcel: 5},
			{Sequence: 2, Age: 9, Type: PersonTypeChildAge5Through15, UsualSchoolParcel: 7},
		},
	}
}

func TestInvalidityPropagates(t *testing.T) {
	tests := []struct {
		name      string
		invalid   func(d *HouseholdDay)
		wantValid bool
	}{
		{"all valid", func(d *HouseholdDay) {}, true},
		{"person day", func(d *HouseholdDay) { d.PersonDays[1].IsValid = false }, false},
		{"tour", func(d *HouseholdDay) {
			d.PersonDays[0].CreateTour(PurposeWork).IsValid = false
		}, false},
		{"subtour", func(d *HouseholdDay) {
			tour := d.PersonDays[0].CreateTour(PurposeWork)
			tour.SetModeTime(ModeSOV, 480, 1020)
			tour.CreateSubtour(PurposeMeal).IsValid = false
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewHouseholdDay(testHousehold(), 1)
			tt.invalid(d)
			if got := d.Valid(); got != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestTourInvalidateReachesHouseholdDay(t *testing.T) {
	d := NewHouseholdDay(testHousehold(), 1)
	tour := d.PersonDays[1].CreateTour(PurposeSchool)
	tour.Invalidate()
	if d.IsValid || d.PersonDays[1].IsValid {
		t.Error("Invalidate should mark person day and household day invalid")
	}
	if !d.PersonDays[0].IsValid {
		t.Error("other person days must stay valid")
	}
}

func TestResetClearsAttempt(t *testing.T) {
	d := NewHouseholdDay(testHousehold(), 1)
	pd := d.PersonDays[0]
	window := pd.Window
	pd.PatternType = PatternMandatory
	pd.CreateTour(PurposeWork)
	pd.Window.SetBusyMinutes(480, 1020)
	pd.Claim(OriginToDestination)
	d.CreateJointTour(PurposeShopping)
	d.Invalidate()

	d.Reset()

	if !d.IsValid || !pd.IsValid {
		t.Error("Reset should restore validity")
	}
	if len(pd.Tours) != 0 || pd.TotalCreatedTours() != 0 || len(d.JointTours) != 0 {
		t.Error("Reset should discard tours and joint records")
	}
	if pd.Window != window || pd.Window.BusyMinutes() != 0 {
		t.Error("Reset should clear the window in place")
	}
	if pd.IsClaimed(OriginToDestination) {
		t.Error("Reset should clear joint claims")
	}
	if next := pd.CreateTour(PurposeWork); next.Sequence != 1 {
		t.Errorf("tour sequence after Reset = %d, want 1", next.Sequence)
	}
}

func TestTourState(t *testing.T) {
	d := NewHouseholdDay(testHousehold(), 1)
	tour := d.PersonDays[0].CreateTour(PurposeWork)

	steps := []struct {
		apply func()
		want  TourState
	}{
		{func() {}, TourDestinationUnset},
		{func() { tour.SetDestination(5) }, TourDestinationSet},
		{func() { tour.SetModeTime(ModeSOV, 480, 1020) }, TourModeTimeSet},
		{func() { tour.SetHalfTourSimulated(DestinationToOrigin) }, TourHalfTourSimulated},
		{func() { tour.Finalized = true }, TourFinalized},
	}
	for i, s := range steps {
		s.apply()
		if got := tour.State(); got != s.want {
			t.Errorf("step %d: State() = %v, want %v", i, got, s.want)
		}
	}
	if !tour.IsUsualLocationMandatory() {
		t.Error("work tour to the usual work parcel should be usual-location mandatory")
	}
}

func TestSubtourWindow(t *testing.T) {
	d := NewHouseholdDay(testHousehold(), 1)
	tour := d.PersonDays[0].CreateTour(PurposeWork)
	tour.SetDestination(5)
	tour.SetModeTime(ModeSOV, 480, 1020)

	st := tour.CreateSubtour(PurposeMeal)
	if st.OriginParcel != 5 || !st.IsSubtour() {
		t.Fatal("subtour should be based at the parent destination")
	}
	w := st.TimeWindow()
	if !w.EntireSpanIsAvailable(480, 1020) {
		t.Error("parent stay should be available to subtours")
	}
	if w.EntireSpanIsAvailable(479, 500) || w.EntireSpanIsAvailable(1000, 1021) {
		t.Error("minutes outside the parent stay must be busy")
	}
	if d.PersonDays[0].Tour(st.Sequence) != st {
		t.Error("subtour should be reachable by sequence")
	}
}

func TestTravelOrderAndExport(t *testing.T) {
	d := NewHouseholdDay(testHousehold(), 1)
	tour := d.PersonDays[0].CreateTour(PurposeWork)
	tour.SetDestination(5)
	tour.SetModeTime(ModeSOV, 480, 1020)

	out := tour.HalfTour(OriginToDestination)
	first := out.CreateTrip()
	first.OriginParcel, first.DestinationParcel = 3, 5
	first.DepartureTime, first.ArrivalTime = 460, 475
	second := out.CreateTrip()
	second.OriginParcel, second.DestinationParcel = 1, 3
	second.DepartureTime, second.ArrivalTime = 440, 450

	ordered := out.TravelOrder()
	if ordered[0] != second || ordered[1] != first {
		t.Fatal("outbound trips should be reversed into travel order")
	}
	if tour.StartTime() != 440 {
		t.Errorf("StartTime() = %d, want 440", tour.StartTime())
	}

	recs := d.Export()
	if len(recs.Tours) != 1 || recs.Tours[0].OutboundTrips != 2 {
		t.Fatalf("unexpected tour records: %+v", recs.Tours)
	}
	if recs.Trips[0].DepartureTime != 440 || recs.Trips[0].TripSequence != 1 {
		t.Errorf("first exported trip = %+v", recs.Trips[0])
	}
	if recs.PersonDays[0].WorkTours != 1 {
		t.Errorf("WorkTours = %d, want 1", recs.PersonDays[0].WorkTours)
	}
}

func TestJointParticipantLimit(t *testing.T) {
	hh := &Household{ID: 1}
	for i := 1; i <= 9; i++ {
		hh.Persons = append(hh.Persons, &Person{Sequence: i, Age: 30})
	}
	d := NewHouseholdDay(hh, 1)
	jt := d.CreateJointTour(PurposeSocial)
	added := 0
	for _, pd := range d.PersonDays {
		if jt.AddParticipant(pd) {
			added++
		}
	}
	if added != MaxParticipants {
		t.Errorf("added %d participants, want %d", added, MaxParticipants)
	}
}
