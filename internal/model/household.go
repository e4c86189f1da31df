package model

import "sort"

// DrivingAge is the default minimum driving age.
const DrivingAge = 16

// Parcel is a land-use location. Coordinates are planar, in meters.
type Parcel struct {
	ID     int
	ZoneID int
	X      float64
	Y      float64
}

// ParcelLookup resolves parcel ids. Implementations are shared read-only
// across workers.
type ParcelLookup interface {
	Parcel(id int) (Parcel, bool)
}

// Parcels is an in-memory ParcelLookup.
type Parcels map[int]Parcel

// Parcel implements ParcelLookup.
func (p Parcels) Parcel(id int) (Parcel, bool) {
	parcel, ok := p[id]
	return parcel, ok
}

// IDs returns the parcel ids in ascending order.
func (p Parcels) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Household is a synthetic household and its members.
type Household struct {
	ID              int
	ResidenceParcel int
	Vehicles        int
	Income          int
	Persons         []*Person

	// RandomSeed is assigned by the scheduler before sampling.
	RandomSeed int64
}

// Size returns the number of persons.
func (h *Household) Size() int {
	return len(h.Persons)
}

// Workers returns the number of full or part time workers.
func (h *Household) Workers() int {
	n := 0
	for _, p := range h.Persons {
		if p.IsWorker() {
			n++
		}
	}
	return n
}

// Person returns the person with the given sequence, or nil.
func (h *Household) Person(sequence int) *Person {
	for _, p := range h.Persons {
		if p.Sequence == sequence {
			return p
		}
	}
	return nil
}

// Person is a household member. Static attributes do not change while a day
// is simulated; the Made* flags are derived after a valid day.
type Person struct {
	Sequence          int
	Age               int
	Type              PersonType
	UsualWorkParcel   int
	UsualSchoolParcel int

	MadeWorkTour   bool
	MadeSchoolTour bool
}

// IsWorker reports whether the person works full or part time.
func (p *Person) IsWorker() bool {
	return p.Type == PersonTypeFullTimeWorker || p.Type == PersonTypePartTimeWorker
}

// IsStudent reports whether the person attends school or university.
func (p *Person) IsStudent() bool {
	switch p.Type {
	case PersonTypeUniversityStudent, PersonTypeDrivingAgeStudent,
		PersonTypeChildAge5Through15, PersonTypeChildUnder5:
		return true
	}
	return p.UsualSchoolParcel != 0
}

// IsChild reports whether the person is under 16.
func (p *Person) IsChild() bool {
	return p.Age < DrivingAge
}

// UsualLocation returns the usual location parcel for a mandatory purpose,
// or 0 when the person has none.
func (p *Person) UsualLocation(purpose Purpose) int {
	switch purpose {
	case PurposeWork:
		return p.UsualWorkParcel
	case PurposeSchool:
		return p.UsualSchoolParcel
	default:
		return 0
	}
}
