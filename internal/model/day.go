package model

import (
	"github.com/daysim/daysim/pkg/timewindow"
)

// HouseholdDay is one simulated day of one household.
type HouseholdDay struct {
	Household *Household
	Day       int

	IsValid              bool
	AttemptedSimulations int
	Abandoned            bool

	PrimaryPriorityTimeFlag bool

	PersonDays       []*PersonDay
	JointTours       []*JointTour
	FullHalfTours    []*FullHalfTour
	PartialHalfTours []*PartialHalfTour
}

// NewHouseholdDay allocates a day with one PersonDay per household member.
func NewHouseholdDay(hh *Household, day int) *HouseholdDay {
	d := &HouseholdDay{
		Household:  hh,
		Day:        day,
		IsValid:    true,
		PersonDays: make([]*PersonDay, 0, len(hh.Persons)),
	}
	for _, p := range hh.Persons {
		d.PersonDays = append(d.PersonDays, newPersonDay(d, p))
	}
	return d
}

// Reset discards everything the last attempt produced. Time windows are
// cleared in place rather than reallocated.
func (d *HouseholdDay) Reset() {
	d.IsValid = true
	d.PrimaryPriorityTimeFlag = false
	d.JointTours = d.JointTours[:0]
	d.FullHalfTours = d.FullHalfTours[:0]
	d.PartialHalfTours = d.PartialHalfTours[:0]
	for _, pd := range d.PersonDays {
		pd.Reset()
	}
}

// Invalidate marks the day invalid.
func (d *HouseholdDay) Invalidate() {
	d.IsValid = false
}

// Valid recomputes validity bottom up: the day is valid only while every
// PersonDay is valid.
func (d *HouseholdDay) Valid() bool {
	for _, pd := range d.PersonDays {
		if !pd.Valid() {
			d.IsValid = false
		}
	}
	return d.IsValid
}

// PersonDay returns the PersonDay for a person sequence, or nil.
func (d *HouseholdDay) PersonDay(sequence int) *PersonDay {
	for _, pd := range d.PersonDays {
		if pd.Person.Sequence == sequence {
			return pd
		}
	}
	return nil
}

// Tour resolves a participant reference.
func (d *HouseholdDay) Tour(p Participant) *Tour {
	pd := d.PersonDay(p.PersonSequence)
	if pd == nil {
		return nil
	}
	return pd.Tour(p.TourSequence)
}

// CreateJointTour appends a new joint tour record.
func (d *HouseholdDay) CreateJointTour(purpose Purpose) *JointTour {
	jt := &JointTour{
		Sequence: len(d.JointTours) + 1,
		Purpose:  purpose,
		Window:   timewindow.New(),
	}
	d.JointTours = append(d.JointTours, jt)
	return jt
}

// CreateFullHalfTour appends a new full joint half tour record.
func (d *HouseholdDay) CreateFullHalfTour(subtype JointSubtype) *FullHalfTour {
	fh := &FullHalfTour{
		Sequence: len(d.FullHalfTours) + 1,
		Subtype:  subtype,
		Window:   timewindow.New(),
	}
	d.FullHalfTours = append(d.FullHalfTours, fh)
	return fh
}

// CreatePartialHalfTour appends a new partial joint half tour record.
func (d *HouseholdDay) CreatePartialHalfTour(subtype JointSubtype) *PartialHalfTour {
	ph := &PartialHalfTour{
		Sequence: len(d.PartialHalfTours) + 1,
		Subtype:  subtype,
	}
	d.PartialHalfTours = append(d.PartialHalfTours, ph)
	return ph
}

// PersonDay is one person's day within a HouseholdDay.
type PersonDay struct {
	HouseholdDay *HouseholdDay
	Person       *Person

	PatternType PatternType

	// Planned mandatory tours, set by the mandatory tour generation model.
	PlannedWorkTours   int
	PlannedSchoolTours int

	CreatedTours   [PurposeCount]int
	SimulatedTours [PurposeCount]int

	Window               *timewindow.Window
	IsValid              bool
	AttemptedSimulations int

	Tours []*Tour

	// JointHalfTourClaimed records, per direction, whether the person already
	// takes part in a full or partial joint half tour.
	JointHalfTourClaimed [2]bool

	nextTourSequence int
}

func newPersonDay(d *HouseholdDay, p *Person) *PersonDay {
	return &PersonDay{
		HouseholdDay: d,
		Person:       p,
		Window:       timewindow.New(),
		IsValid:      true,
	}
}

// Reset restores the PersonDay to its pre-attempt state.
func (pd *PersonDay) Reset() {
	pd.PatternType = PatternUnset
	pd.PlannedWorkTours = 0
	pd.PlannedSchoolTours = 0
	pd.CreatedTours = [PurposeCount]int{}
	pd.SimulatedTours = [PurposeCount]int{}
	pd.Window.Reset()
	pd.IsValid = true
	pd.Tours = pd.Tours[:0]
	pd.JointHalfTourClaimed = [2]bool{}
	pd.nextTourSequence = 0
}

// Invalidate marks the PersonDay and its household day invalid.
func (pd *PersonDay) Invalidate() {
	pd.IsValid = false
	if pd.HouseholdDay != nil {
		pd.HouseholdDay.IsValid = false
	}
}

// Valid recomputes validity from the tours.
func (pd *PersonDay) Valid() bool {
	for _, t := range pd.Tours {
		if !t.Valid() {
			pd.IsValid = false
		}
	}
	return pd.IsValid
}

// CreateTour adds a home-based tour and counts it as created.
func (pd *PersonDay) CreateTour(purpose Purpose) *Tour {
	t := pd.newTour(purpose, pd.HouseholdDay.Household.ResidenceParcel)
	pd.Tours = append(pd.Tours, t)
	pd.CreatedTours[purpose]++
	return t
}

func (pd *PersonDay) newTour(purpose Purpose, origin int) *Tour {
	pd.nextTourSequence++
	return &Tour{
		PersonDay:    pd,
		Sequence:     pd.nextTourSequence,
		Purpose:      purpose,
		OriginParcel: origin,
		IsValid:      true,
	}
}

// Tour returns a tour or subtour by sequence, or nil.
func (pd *PersonDay) Tour(sequence int) *Tour {
	for _, t := range pd.Tours {
		if t.Sequence == sequence {
			return t
		}
		for _, st := range t.Subtours {
			if st.Sequence == sequence {
				return st
			}
		}
	}
	return nil
}

// MandatoryUsualLocationTour returns the first work or school tour headed to
// the person's usual location, or nil.
func (pd *PersonDay) MandatoryUsualLocationTour() *Tour {
	for _, t := range pd.Tours {
		if t.IsUsualLocationMandatory() {
			return t
		}
	}
	return nil
}

// TotalCreatedTours returns the number of home-based tours created.
func (pd *PersonDay) TotalCreatedTours() int {
	n := 0
	for _, c := range pd.CreatedTours {
		n += c
	}
	return n
}

// IsClaimed reports whether the person already joined a joint half tour in
// the direction.
func (pd *PersonDay) IsClaimed(dir Direction) bool {
	return pd.JointHalfTourClaimed[dir.index()]
}

// Claim records participation in a joint half tour for the direction.
func (pd *PersonDay) Claim(dir Direction) {
	pd.JointHalfTourClaimed[dir.index()] = true
}
