package models

import (
	"testing"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/internal/random"
	"github.com/daysim/daysim/pkg/choice"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/skim"
	"github.com/daysim/daysim/pkg/timewindow"
)

func testParcels() model.Parcels {
	parcels := model.Parcels{}
	id := 1
	for x := 0; x < 6; x++ {
		for y := 0; y < 6; y++ {
			parcels[id] = model.Parcel{ID: id, ZoneID: x, X: float64(x) * 1500, Y: float64(y) * 1500}
			id++
		}
	}
	return parcels
}

func testEnv(seed int64) *choice.Env {
	return &choice.Env{
		Random:     random.New(seed),
		Impedance:  skim.DefaultStraightLine(),
		Parcels:    testParcels(),
		Day:        1,
		DrivingAge: model.DrivingAge,
	}
}

func family() *model.Household {
	return &model.Household{
		ID:              1,
		ResidenceParcel: 1,
		Vehicles:        1,
		RandomSeed:      11,
		Persons: []*model.Person{
			{Sequence: 1, Age: 44, Type: model.PersonTypeFullTimeWorker, UsualWorkParcel: 36},
			{Sequence: 2, Age: 41, Type: model.PersonTypePartTimeWorker, UsualWorkParcel: 20},
			{Sequence: 3, Age: 12, Type: model.PersonTypeChildAge5Through15, UsualSchoolParcel: 8},
			{Sequence: 4, Age: 72, Type: model.PersonTypeRetired},
		},
	}
}

func TestPick(t *testing.T) {
	tests := []struct {
		name      string
		u         float64
		weights   []float64
		available []bool
		want      int
	}{
		{"first", 0, []float64{1, 1, 1}, []bool{true, true, true}, 0},
		{"last", 0.999, []float64{1, 1, 1}, []bool{true, true, true}, 2},
		{"middle", 0.5, []float64{1, 2, 1}, []bool{true, true, true}, 1},
		{"skips unavailable", 0, []float64{1, 1, 1}, []bool{false, true, true}, 1},
		{"skips zero weight", 0.1, []float64{0, 0, 1}, []bool{true, true, true}, 2},
		{"nothing available", 0.5, []float64{1, 1}, []bool{false, false}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pick(tt.u, tt.weights, tt.available); got != tt.want {
				t.Errorf("pick() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParticipationRespectsAvailability(t *testing.T) {
	d := model.NewHouseholdDay(family(), 1)
	env := testEnv(3)
	env.Random.ResetSynchronization(42)
	available := []bool{false, true, false, true}

	in, status, err := Participation{}.Participate(env, choice.Participation{
		Day:        d,
		Candidates: d.PersonDays,
		Available:  available,
	})
	if err != nil || status != choice.OK {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if len(in) != 4 || !in[1] {
		t.Fatalf("participation = %v, first available must join", in)
	}
	if in[0] || in[2] {
		t.Errorf("unavailable candidates joined: %v", in)
	}
}

func TestChauffeurIsOldest(t *testing.T) {
	d := model.NewHouseholdDay(family(), 1)
	idx, _, _ := Chauffeur{}.ChooseChauffeur(testEnv(1), d, d.PersonDays[:2])
	if idx != 0 {
		t.Errorf("chauffeur = %d, want 0", idx)
	}
	if _, status, _ := (Chauffeur{}).ChooseChauffeur(testEnv(1), d, nil); status != choice.Invalid {
		t.Error("no candidates should be invalid")
	}
}

func TestDestination(t *testing.T) {
	d := model.NewHouseholdDay(family(), 1)
	parcels := testParcels().IDs()
	m := NewDestination(parcels)

	work := d.PersonDays[0].CreateTour(model.PurposeWork)
	if _, err := m.RunTour(testEnv(1), work); err != nil || work.DestinationParcel != 36 {
		t.Errorf("work destination = %d, want usual location 36", work.DestinationParcel)
	}

	for seed := int64(1); seed <= 20; seed++ {
		shop := d.PersonDays[3].CreateTour(model.PurposeShopping)
		status, err := m.RunTour(testEnv(seed), shop)
		if err != nil || status != choice.OK {
			t.Fatalf("status=%s err=%v", status, err)
		}
		if shop.DestinationParcel == shop.OriginParcel || !shop.DestinationSet {
			t.Errorf("seed %d: destination %d", seed, shop.DestinationParcel)
		}
	}

	_, err := NewDestination(nil).RunTour(testEnv(1), d.PersonDays[3].CreateTour(model.PurposeMeal))
	if !simerrors.IsCode(err, simerrors.CodeUnknownParcel) {
		t.Errorf("err = %v, want unknown parcel", err)
	}
}

func TestModeTimeFitsWindow(t *testing.T) {
	d := model.NewHouseholdDay(family(), 1)
	pd := d.PersonDays[0]
	pd.Window.SetBusyMinutes(1, 300)
	pd.Window.SetBusyMinutes(1200, 1441)

	for seed := int64(1); seed <= 20; seed++ {
		tour := pd.CreateTour(model.PurposeWork)
		tour.SetDestination(36)
		status, err := ModeTime{}.RunTour(testEnv(seed), tour)
		if err != nil || status != choice.OK {
			t.Fatalf("seed %d: status=%s err=%v", seed, status, err)
		}
		arr, dep := tour.DestinationArrivalTime, tour.DestinationDepartureTime
		if arr > dep || !pd.Window.EntireSpanIsAvailable(arr, dep) {
			t.Errorf("seed %d: stay %d-%d collides with the window", seed, arr, dep)
		}
		if tour.Mode == model.ModeNone {
			t.Errorf("seed %d: no mode", seed)
		}
	}

	pd.Window.SetBusyMinutes(1, 1441)
	tour := pd.CreateTour(model.PurposeShopping)
	tour.SetDestination(2)
	if status, _ := (ModeTime{}).RunTour(testEnv(1), tour); status != choice.Invalid {
		t.Error("a full window should be invalid")
	}
}

func TestPlaceStay(t *testing.T) {
	w := timewindow.New()
	w.SetBusyMinutes(1, 300)
	w.SetBusyMinutes(600, 700)
	w.SetBusyMinutes(1200, 1441)

	tests := []struct {
		name      string
		preferred int
		stay      int
		want      int
	}{
		{"preferred fits as is", 400, 60, 400},
		{"clamped to the end of its span", 560, 60, 528},
		{"preferred is busy", 650, 60, 711},
		{"clamped inside the later span", 1150, 60, 1128},
		{"nothing fits", 800, 600, timewindow.NoMinute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := placeStay(w, tt.preferred, tt.stay, 10); got != tt.want {
				t.Errorf("placeStay(%d, %d) = %d, want %d", tt.preferred, tt.stay, got, tt.want)
			}
		})
	}
}

func TestTripTimeChainsFromAnchor(t *testing.T) {
	d := model.NewHouseholdDay(family(), 1)
	tour := d.PersonDays[0].CreateTour(model.PurposeWork)
	tour.SetDestination(36)
	tour.SetModeTime(model.ModeSOV, 480, 1000)

	for _, dir := range model.Directions {
		h := tour.HalfTour(dir)
		trip := h.CreateTrip()
		trip.OriginParcel, trip.DestinationParcel = 1, 36
		trip.Mode = model.ModeSOV
		anchor := 480
		if dir == model.DestinationToOrigin {
			anchor = 1000
		}
		tc := choice.TripContext{Tour: tour, HalfTour: h, Trip: trip, Anchor: anchor}
		if _, err := (TripTime{}).RunTrip(testEnv(1), tc); err != nil {
			t.Fatal(err)
		}
		if trip.Duration() < 1 {
			t.Errorf("%s: duration %d", dir, trip.Duration())
		}
		if dir == model.OriginToDestination && trip.ArrivalTime != anchor {
			t.Errorf("outbound arrives %d, want %d", trip.ArrivalTime, anchor)
		}
		if dir == model.DestinationToOrigin && trip.DepartureTime != anchor {
			t.Errorf("return departs %d, want %d", trip.DepartureTime, anchor)
		}
	}
}

func TestBindingsCoverEveryID(t *testing.T) {
	bindings := Bindings(testParcels().IDs())
	for _, id := range choice.AllIDs() {
		m, ok := bindings[id]
		if !ok {
			t.Errorf("%s not bound", id)
			continue
		}
		if !id.Kind().Accepts(m) {
			t.Errorf("%s bound to %s, which is not a %s model", id, m.Name(), id.Kind())
		}
	}
}
