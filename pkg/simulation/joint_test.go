package simulation

import (
	"context"
	"testing"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// chooseOnce picks alt on the first iteration when it is available.
func chooseOnce(alt int) generationFunc {
	return func(_ *choice.Env, g choice.Generation) (int, choice.Status, error) {
		if g.Iteration == 0 && g.Available[alt] {
			return alt, choice.OK, nil
		}
		return 0, choice.OK, nil
	}
}

func TestFullHalfTourClonesSource(t *testing.T) {
	tests := []struct {
		name    string
		alt     int
		subtype model.JointSubtype
	}{
		{"paired", 1, model.SubtypePaired},
		{"outbound", 2, model.SubtypeOutbound},
		{"return", 3, model.SubtypeReturn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hh := twoWorkers()
			hh.Persons[1].UsualWorkParcel = 10
			suite := testSuite()
			suite.JointHalfTourGeneration = chooseOnce(tt.alt)

			d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), hh)
			if !d.IsValid {
				t.Fatal("day should be valid")
			}
			if len(d.FullHalfTours) != 1 || d.FullHalfTours[0].Subtype != tt.subtype {
				t.Fatalf("full half tours = %+v", d.FullHalfTours)
			}
			f := d.FullHalfTours[0]
			if f.Participants[0].PersonSequence != 1 {
				t.Errorf("designated = %d, want the oldest", f.Participants[0].PersonSequence)
			}

			src, clone := d.PersonDays[0].Tours[0], d.PersonDays[1].Tours[0]
			if len(d.PersonDays[1].Tours) != 1 {
				t.Errorf("same destination should reuse the work tour, got %d tours", len(d.PersonDays[1].Tours))
			}
			if clone.FullHalfTour(tt.subtype.Directions()[0]) != f.Sequence {
				t.Error("clone tour should be linked")
			}
			shared := map[model.Direction]bool{}
			for _, dir := range tt.subtype.Directions() {
				shared[dir] = true
			}
			for _, dir := range model.Directions {
				from, to := src.HalfTour(dir).Trips, clone.HalfTour(dir).Trips
				for i, trip := range to {
					if trip.IsCloned != shared[dir] {
						t.Errorf("%s trip %d cloned = %v", dir, i, trip.IsCloned)
					}
					if !shared[dir] {
						continue
					}
					if trip.Mode != model.ModeHOVPassenger || from[i].Mode != model.ModeHOVDriver {
						t.Errorf("%s trip %d modes = %s/%s", dir, i, from[i].Mode, trip.Mode)
					}
					if trip.DepartureTime != from[i].DepartureTime || trip.ArrivalTime != from[i].ArrivalTime {
						t.Errorf("%s trip %d times differ", dir, i)
					}
				}
			}
			if !clone.Finalized || d.PersonDays[1].SimulatedTours[model.PurposeWork] != 1 {
				t.Error("clone tour should be finalized and counted")
			}
		})
	}
}

func TestFullHalfTourCreatesEscortTour(t *testing.T) {
	suite := testSuite()
	suite.JointHalfTourGeneration = chooseOnce(1)

	d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), twoWorkers())
	if !d.IsValid {
		t.Fatal("day should be valid")
	}
	pd := d.PersonDays[1]
	if len(pd.Tours) != 2 {
		t.Fatalf("tours = %d, want work plus escort", len(pd.Tours))
	}
	escort := pd.Tours[1]
	if escort.Purpose != model.PurposeEscort || escort.DestinationParcel != 10 || escort.FullHalfTour(model.OriginToDestination) != 1 {
		t.Errorf("escort tour = purpose %s dest %d", escort.Purpose, escort.DestinationParcel)
	}
	work := pd.Tours[0]
	if !work.Finalized || work.StartTime() <= escort.EndTime() {
		t.Errorf("work tour %d-%d should follow escort %d-%d",
			work.StartTime(), work.EndTime(), escort.StartTime(), escort.EndTime())
	}
}

func TestJointHalfTourClaimsAreExclusive(t *testing.T) {
	hh := twoWorkers()
	hh.Persons[1].UsualWorkParcel = 10
	suite := testSuite()
	suite.JointHalfTourGeneration = generationFunc(func(_ *choice.Env, g choice.Generation) (int, choice.Status, error) {
		for alt := 1; alt < len(g.Available); alt++ {
			if g.Available[alt] {
				return alt, choice.OK, nil
			}
		}
		return 0, choice.OK, nil
	})

	d, w := simulateOne(t, newTestSimulator(testConfig(), suite), hh)
	if !d.IsValid {
		t.Fatal("day should be valid")
	}
	// The paired half tour claims both directions for both persons, so
	// nothing is left to offer.
	if got := w.Counters.Models.Calls[choice.JointHalfTourGeneration]; got != 1 {
		t.Errorf("generation calls = %d, want 1", got)
	}
	if len(d.FullHalfTours) != 1 || len(d.PartialHalfTours) != 0 {
		t.Errorf("full=%d partial=%d", len(d.FullHalfTours), len(d.PartialHalfTours))
	}
}

func threePersons() *model.Household {
	return &model.Household{
		ID:              21,
		ResidenceParcel: 1,
		Vehicles:        1,
		RandomSeed:      5,
		Persons: []*model.Person{
			{Sequence: 1, Age: 40, Type: model.PersonTypeFullTimeWorker, UsualWorkParcel: 10},
			{Sequence: 2, Age: 10, Type: model.PersonTypeChildAge5Through15, UsualSchoolParcel: 30},
			{Sequence: 3, Age: 8, Type: model.PersonTypeChildAge5Through15, UsualSchoolParcel: 20},
		},
	}
}

func TestPartialHalfTourDropOff(t *testing.T) {
	suite := testSuite()
	suite.JointHalfTourGeneration = chooseOnce(5) // partial outbound

	d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), threePersons())
	if !d.IsValid {
		t.Fatal("day should be valid")
	}
	if len(d.PartialHalfTours) != 1 {
		t.Fatalf("partial half tours = %d, want 1", len(d.PartialHalfTours))
	}
	p := d.PartialHalfTours[0]
	if p.Chauffeur != 1 {
		t.Errorf("chauffeur = %d, want 1", p.Chauffeur)
	}
	// Person 3's school is closer to the work place than person 2's.
	var order []int
	for _, part := range p.Participants {
		order = append(order, part.PersonSequence)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 3 || order[2] != 2 {
		t.Fatalf("participant order = %v, want [1 3 2]", order)
	}

	chauffeur := d.PersonDays[0].Tours[0]
	trips := chauffeur.HalfTour(model.OriginToDestination).Trips
	if len(trips) != 3 {
		t.Fatalf("chauffeur outbound trips = %d, want 3", len(trips))
	}
	if !trips[0].IsEscortStop || trips[0].OriginParcel != 20 || trips[1].OriginParcel != 30 {
		t.Errorf("escort stops = %d, %d", trips[0].OriginParcel, trips[1].OriginParcel)
	}
	if !trips[2].IsToTourOrigin || trips[2].OriginParcel != 1 {
		t.Error("last generated trip should start at home")
	}

	for i, seq := range []int{3, 2} {
		pd := d.PersonDay(seq)
		tour := pd.Tours[0]
		pt := tour.HalfTour(model.OriginToDestination).Trips
		if len(pt) != 1 || pt[0].Mode != model.ModeHOVPassenger {
			t.Fatalf("person %d outbound = %d trips", seq, len(pt))
		}
		stop := trips[i+1]
		if pt[0].ArrivalTime != stop.ArrivalTime || tour.DestinationArrivalTime != stop.ArrivalTime {
			t.Errorf("person %d arrives %d, chauffeur stops %d", seq, pt[0].ArrivalTime, stop.ArrivalTime)
		}
		if pt[0].DepartureTime != trips[2].DepartureTime {
			t.Errorf("person %d departs %d, want %d", seq, pt[0].DepartureTime, trips[2].DepartureTime)
		}
		if !tour.Finalized || tour.PartialHalfTour(model.OriginToDestination) != p.Sequence {
			t.Errorf("person %d tour finalized=%v", seq, tour.Finalized)
		}
	}
}

func TestPartialHalfTourPickUp(t *testing.T) {
	suite := testSuite()
	suite.JointHalfTourGeneration = chooseOnce(6) // partial return

	d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), threePersons())
	if !d.IsValid {
		t.Fatal("day should be valid")
	}
	chauffeur := d.PersonDays[0].Tours[0]
	trips := chauffeur.HalfTour(model.DestinationToOrigin).Trips
	if len(trips) != 3 {
		t.Fatalf("chauffeur return trips = %d, want 3", len(trips))
	}
	for i, seq := range []int{3, 2} {
		tour := d.PersonDay(seq).Tours[0]
		pt := tour.HalfTour(model.DestinationToOrigin).Trips
		if len(pt) != 1 || pt[0].DepartureTime != trips[i+1].DepartureTime {
			t.Errorf("person %d return = %+v", seq, pt)
		}
		if pt[0].ArrivalTime != trips[2].ArrivalTime || pt[0].DestinationParcel != 1 {
			t.Errorf("person %d should ride home with the chauffeur", seq)
		}
	}
}

func TestJointTourIsShared(t *testing.T) {
	suite := testSuite()
	suite.HouseholdDayPattern = householdDayFunc(func(_ *choice.Env, d *model.HouseholdDay) (choice.Status, error) {
		for _, pd := range d.PersonDays {
			pd.PatternType = model.PatternNonMandatory
		}
		return choice.OK, nil
	})
	suite.JointTourGeneration = chooseOnce(3) // shopping

	d, w := simulateOne(t, newTestSimulator(testConfig(), suite), twoWorkers())
	if !d.IsValid {
		t.Fatal("day should be valid")
	}
	if len(d.JointTours) != 1 || d.JointTours[0].Purpose != model.PurposeShopping {
		t.Fatalf("joint tours = %+v", d.JointTours)
	}
	jt := d.JointTours[0]
	src := d.Tour(jt.Participants[0])
	clone := d.Tour(jt.Participants[1])
	if src == nil || clone == nil || src.PersonDay.Person.Sequence != 1 {
		t.Fatal("participants should resolve to tours, oldest first")
	}
	if clone.DestinationParcel != src.DestinationParcel || clone.Mode != model.ModeHOVPassenger {
		t.Errorf("clone dest=%d mode=%s", clone.DestinationParcel, clone.Mode)
	}
	for _, pd := range d.PersonDays {
		if pd.SimulatedTours[model.PurposeShopping] != 1 {
			t.Errorf("person %d simulated shopping = %d", pd.Person.Sequence, pd.SimulatedTours[model.PurposeShopping])
		}
	}
	if w.Counters.JointTours != 1 {
		t.Errorf("JointTours = %d, want 1", w.Counters.JointTours)
	}
}

func TestJointParticipationNeedsTwo(t *testing.T) {
	suite := testSuite()
	suite.JointHalfTourGeneration = chooseOnce(1)
	suite.FullHalfTourParticipation = participationFunc(func(_ *choice.Env, p choice.Participation) ([]bool, choice.Status, error) {
		v := make([]bool, len(p.Candidates))
		v[0] = true
		return v, choice.OK, nil
	})

	d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), twoWorkers())
	if d.IsValid || !d.Abandoned {
		t.Error("a single participant must invalidate the day")
	}
}

func TestJointContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		hh     func() *model.Household
		mutate func(*choice.Suite)
		person bool
	}{
		{
			name: "unavailable alternative",
			hh: func() *model.Household {
				hh := twoWorkers()
				for _, p := range hh.Persons {
					p.UsualWorkParcel = 0
				}
				return hh
			},
			mutate: func(s *choice.Suite) {
				s.JointHalfTourGeneration = generationFunc(func(*choice.Env, choice.Generation) (int, choice.Status, error) {
					return 4, choice.OK, nil
				})
			},
		},
		{
			name: "participation vector length",
			hh:   twoWorkers,
			mutate: func(s *choice.Suite) {
				s.JointHalfTourGeneration = chooseOnce(1)
				s.FullHalfTourParticipation = participationFunc(func(*choice.Env, choice.Participation) ([]bool, choice.Status, error) {
					return []bool{true}, choice.OK, nil
				})
			},
			person: true,
		},
		{
			name: "chauffeur out of range",
			hh:   threePersons,
			mutate: func(s *choice.Suite) {
				s.JointHalfTourGeneration = chooseOnce(4)
				s.PartialHalfTourChauffeur = chauffeurFunc(func(*choice.Env, *model.HouseholdDay, []*model.PersonDay) (int, choice.Status, error) {
					return 2, choice.OK, nil
				})
			},
			person: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := testSuite()
			tt.mutate(&suite)
			_, err := newTestSimulator(testConfig(), suite).SimulateHousehold(context.Background(), NewWorkerState(0), tt.hh())
			if !simerrors.IsCode(err, simerrors.CodeInvariant) {
				t.Errorf("err = %v, want invariant violation", err)
			}
			if _, ok := simerrors.ContextOf(err, simerrors.KeyPerson); ok != tt.person {
				t.Errorf("person context present = %v, want %v", ok, tt.person)
			}
		})
	}
}

func TestCloneHalfTour(t *testing.T) {
	d := model.NewHouseholdDay(twoWorkers(), 1)
	src := d.PersonDays[0].CreateTour(model.PurposeShopping)
	h := src.HalfTour(model.DestinationToOrigin)
	for i := 0; i < 2; i++ {
		trip := h.CreateTrip()
		trip.Mode = model.ModeHOVDriver
		trip.DepartureTime, trip.ArrivalTime = 600+10*i, 605+10*i
	}
	h.SimulatedTrips = 2
	dst := d.PersonDays[1].CreateTour(model.PurposeShopping)

	cloneHalfTour(src, dst, model.DestinationToOrigin)

	got := dst.HalfTour(model.DestinationToOrigin)
	if !dst.IsHalfTourSimulated(model.DestinationToOrigin) || got.SimulatedTrips != 2 || len(got.Trips) != 2 {
		t.Fatalf("clone = %+v", got)
	}
	if got.Trips[0] == h.Trips[0] {
		t.Error("trips must be copied, not shared")
	}
	if !got.Trips[1].IsCloned || got.Trips[1].Mode != model.ModeHOVPassenger || got.Trips[1].ArrivalTime != 615 {
		t.Errorf("cloned trip = %+v", got.Trips[1])
	}
	if h.Trips[1].IsCloned {
		t.Error("source trips must not change")
	}
}

// subtourOnce gives the first work tour one meal subtour.
func subtourOnce() generationFunc {
	return func(_ *choice.Env, g choice.Generation) (int, choice.Status, error) {
		if g.Iteration == 0 {
			return 4, choice.OK, nil
		}
		return 0, choice.OK, nil
	}
}

func TestSubtoursStayInsideJointAdjustedParent(t *testing.T) {
	fullThenPartial := generationFunc(func(_ *choice.Env, g choice.Generation) (int, choice.Status, error) {
		switch {
		case g.Iteration == 0 && g.Available[3]:
			return 3, choice.OK, nil
		case g.Iteration == 1 && g.Available[5]:
			return 5, choice.OK, nil
		}
		return 0, choice.OK, nil
	})
	secondDrives := chauffeurFunc(func(_ *choice.Env, _ *model.HouseholdDay, c []*model.PersonDay) (int, choice.Status, error) {
		for i, pd := range c {
			if pd.Person.Sequence == 2 {
				return i, choice.OK, nil
			}
		}
		return 0, choice.OK, nil
	})

	tests := []struct {
		name       string
		generation generationFunc
		sameWork   bool
	}{
		{"full return", chooseOnce(3), true},
		{"full outbound", chooseOnce(2), true},
		{"partial outbound", chooseOnce(5), false},
		{"partial return", chooseOnce(6), false},
		{"full return then partial outbound", fullThenPartial, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hh := twoWorkers()
			if tt.sameWork {
				hh.Persons[1].UsualWorkParcel = 10
			}
			suite := testSuite()
			suite.JointHalfTourGeneration = tt.generation
			suite.PartialHalfTourChauffeur = secondDrives
			suite.WorkBasedSubtourGeneration = subtourOnce()

			d, _ := simulateOne(t, newTestSimulator(testConfig(), suite), hh)
			if !d.IsValid {
				return
			}
			for _, pd := range d.PersonDays {
				for _, tour := range pd.Tours {
					if !tour.Valid() || !tour.Finalized {
						t.Errorf("person %d tour valid=%v finalized=%v in a valid day",
							pd.Person.Sequence, tour.Valid(), tour.Finalized)
					}
					for _, st := range tour.Subtours {
						if st.StartTime() < tour.DestinationArrivalTime || st.EndTime() > tour.DestinationDepartureTime {
							t.Errorf("person %d subtour %d-%d outside parent stay %d-%d", pd.Person.Sequence,
								st.StartTime(), st.EndTime(), tour.DestinationArrivalTime, tour.DestinationDepartureTime)
						}
					}
				}
			}
		})
	}
}

func TestShiftedParentInvalidatesSubtours(t *testing.T) {
	tests := []struct {
		name     string
		arr, dep int
		valid    bool
	}{
		{"stay still covers subtour", 500, 900, true},
		{"arrival moved past subtour start", 650, 900, false},
		{"departure moved before subtour end", 500, 620, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := model.NewHouseholdDay(twoWorkers(), 1)
			parent := d.PersonDays[0].CreateTour(model.PurposeWork)
			parent.SetDestination(10)
			parent.SetModeTime(model.ModeSOV, 500, 900)
			st := parent.CreateSubtour(model.PurposeMeal)
			st.SetModeTime(model.ModeWalk, 600, 640)

			parent.SetModeTime(model.ModeSOV, tt.arr, tt.dep)
			checkTimes(parent)
			if got := parent.Valid(); got != tt.valid {
				t.Fatalf("checkTimes valid = %v, want %v", got, tt.valid)
			}

			r := &householdRun{}
			r.finalize(parent)
			if parent.Finalized != tt.valid {
				t.Errorf("finalized = %v, want %v", parent.Finalized, tt.valid)
			}
		})
	}
}

func TestEscortStopsCountAgainstTripCap(t *testing.T) {
	tests := []struct {
		name  string
		cap   int
		valid bool
	}{
		{"room for both passengers", 3, true},
		{"one passenger short", 2, false},
		{"single trip", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := testSuite()
			suite.JointHalfTourGeneration = chooseOnce(5) // partial outbound
			cfg := testConfig()
			cfg.MaxTripsPerHalfTour = tt.cap

			d, _ := simulateOne(t, newTestSimulator(cfg, suite), threePersons())
			if d.IsValid != tt.valid {
				t.Fatalf("valid = %v, want %v", d.IsValid, tt.valid)
			}
			for _, tour := range d.PersonDays[0].Tours {
				if n := len(tour.HalfTour(model.OriginToDestination).Trips); n > tt.cap {
					t.Errorf("chauffeur outbound trips = %d, cap %d", n, tt.cap)
				}
			}
		})
	}
}

func TestParticipantToursNameThePerson(t *testing.T) {
	d := model.NewHouseholdDay(twoWorkers(), 1)
	tour := d.PersonDays[0].CreateTour(model.PurposeShopping)
	r := &householdRun{day: d}

	tours, err := r.participantTours([]model.Participant{{PersonSequence: 1, TourSequence: tour.Sequence}})
	if err != nil || len(tours) != 1 || tours[0] != tour {
		t.Fatalf("participantTours() = %v, %v", tours, err)
	}

	_, err = r.participantTours([]model.Participant{
		{PersonSequence: 1, TourSequence: tour.Sequence},
		{PersonSequence: 2, TourSequence: 9},
	})
	if !simerrors.IsCode(err, simerrors.CodeInvariant) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
	if v, ok := simerrors.ContextOf(err, simerrors.KeyPerson); !ok || v != 2 {
		t.Errorf("person = %v, %v, want 2", v, ok)
	}
}
