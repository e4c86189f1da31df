package population

import (
	"math/rand"

	"github.com/daysim/daysim/internal/model"
)

const (
	gridSide      = 20
	gridSpacing   = 800.0 // meters
	zoneSideCells = 5
)

// SyntheticParcels lays out a square grid of parcels, gridSpacing apart,
// grouped into square zones.
func SyntheticParcels() model.Parcels {
	parcels := make(model.Parcels, gridSide*gridSide)
	for row := 0; row < gridSide; row++ {
		for col := 0; col < gridSide; col++ {
			id := row*gridSide + col + 1
			parcels[id] = model.Parcel{
				ID:     id,
				ZoneID: (row/zoneSideCells)*(gridSide/zoneSideCells) + col/zoneSideCells + 1,
				X:      float64(col) * gridSpacing,
				Y:      float64(row) * gridSpacing,
			}
		}
	}
	return parcels
}

// Synthetic generates n households on SyntheticParcels. The same seed always
// yields the same population.
func Synthetic(n int, seed int64) *Population {
	rng := rand.New(rand.NewSource(seed))
	parcels := SyntheticParcels()
	parcel := func() int { return 1 + rng.Intn(len(parcels)) }
	// Schools sit within two cells of home.
	nearby := func(home int) int {
		row := clamp((home-1)/gridSide+rng.Intn(5)-2, 0, gridSide-1)
		col := clamp((home-1)%gridSide+rng.Intn(5)-2, 0, gridSide-1)
		return row*gridSide + col + 1
	}

	households := make([]*model.Household, n)
	for i := range households {
		hh := &model.Household{
			ID:              i + 1,
			ResidenceParcel: parcel(),
			Vehicles:        -1,
			Income:          15000 + rng.Intn(20)*7500,
		}
		add := func(age int, typ model.PersonType) {
			p := &model.Person{Sequence: len(hh.Persons) + 1, Age: age, Type: typ}
			switch {
			case p.IsWorker():
				p.UsualWorkParcel = parcel()
			case typ == model.PersonTypeUniversityStudent:
				p.UsualSchoolParcel = parcel()
			case typ == model.PersonTypeChildUnder5:
				if rng.Float64() < 0.4 {
					p.UsualSchoolParcel = nearby(hh.ResidenceParcel)
				}
			case p.IsStudent():
				p.UsualSchoolParcel = nearby(hh.ResidenceParcel)
			}
			hh.Persons = append(hh.Persons, p)
		}

		size := householdSize(rng)
		if size == 1 {
			if rng.Float64() < 0.6 {
				add(25+rng.Intn(40), model.PersonTypeFullTimeWorker)
			} else {
				add(65+rng.Intn(25), model.PersonTypeRetired)
			}
			households[i] = hh
			continue
		}

		adultAge := 25 + rng.Intn(40)
		add(adultAge, model.PersonTypeFullTimeWorker)
		add(adultAge-3+rng.Intn(7), secondAdult(rng))
		for len(hh.Persons) < size {
			if rng.Float64() < 0.15 {
				add(18+rng.Intn(7), model.PersonTypeUniversityStudent)
				continue
			}
			age := rng.Intn(18)
			add(age, childType(age))
		}
		households[i] = hh
	}
	return &Population{Households: households, Parcels: parcels}
}

func householdSize(rng *rand.Rand) int {
	u := rng.Float64()
	switch {
	case u < 0.28:
		return 1
	case u < 0.62:
		return 2
	case u < 0.78:
		return 3
	case u < 0.92:
		return 4
	default:
		return 5
	}
}

func secondAdult(rng *rand.Rand) model.PersonType {
	switch u := rng.Float64(); {
	case u < 0.45:
		return model.PersonTypeFullTimeWorker
	case u < 0.7:
		return model.PersonTypePartTimeWorker
	case u < 0.9:
		return model.PersonTypeNonWorkingAdult
	default:
		return model.PersonTypeRetired
	}
}

func childType(age int) model.PersonType {
	switch {
	case age < 5:
		return model.PersonTypeChildUnder5
	case age < model.DrivingAge:
		return model.PersonTypeChildAge5Through15
	default:
		return model.PersonTypeDrivingAgeStudent
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
