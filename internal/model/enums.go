// Package model defines the simulation entities built for each household day.
package model

import "fmt"

// Purpose is an activity purpose. PurposeNoneOrHome doubles as the home
// activity for trip ends and as "no tour" for generation choices.
type Purpose int

const (
	PurposeNoneOrHome Purpose = iota
	PurposeWork
	PurposeSchool
	PurposeEscort
	PurposePersonalBusiness
	PurposeShopping
	PurposeMeal
	PurposeSocial
	PurposeRecreation
	PurposeMedical
	PurposeCount
)

var purposeNames = [...]string{
	"none_or_home", "work", "school", "escort", "personal_business",
	"shopping", "meal", "social", "recreation", "medical",
}

// String implements fmt.Stringer.
func (p Purpose) String() string {
	if p >= 0 && int(p) < len(purposeNames) {
		return purposeNames[p]
	}
	return fmt.Sprintf("purpose(%d)", int(p))
}

// IsMandatory reports whether the purpose is work or school.
func (p Purpose) IsMandatory() bool {
	return p == PurposeWork || p == PurposeSchool
}

// NonMandatoryPurposes lists the purposes available to individual and joint
// non-mandatory tour generation, in alternative order.
var NonMandatoryPurposes = []Purpose{
	PurposeEscort,
	PurposePersonalBusiness,
	PurposeShopping,
	PurposeMeal,
	PurposeSocial,
	PurposeRecreation,
	PurposeMedical,
}

// Mode is a travel mode.
type Mode int

const (
	ModeNone Mode = iota
	ModeWalk
	ModeBike
	ModeSOV
	ModeHOVDriver
	ModeHOVPassenger
	ModeTransit
	ModeSchoolBus
	ModeCount
)

var modeNames = [...]string{
	"none", "walk", "bike", "sov", "hov_driver", "hov_passenger", "transit", "school_bus",
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// PatternType is the day pattern chosen for a person.
type PatternType int

const (
	PatternUnset PatternType = iota
	PatternMandatory
	PatternNonMandatory
	PatternHome
)

// String implements fmt.Stringer.
func (p PatternType) String() string {
	switch p {
	case PatternMandatory:
		return "mandatory"
	case PatternNonMandatory:
		return "non_mandatory"
	case PatternHome:
		return "home"
	default:
		return "unset"
	}
}

// Direction is the direction of a half tour.
type Direction int

const (
	OriginToDestination Direction = 1
	DestinationToOrigin Direction = 2
)

// Directions lists both half tour directions in simulation order.
var Directions = []Direction{OriginToDestination, DestinationToOrigin}

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case OriginToDestination:
		return "outbound"
	case DestinationToOrigin:
		return "return"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// index maps a direction to an array slot.
func (d Direction) index() int {
	if d == DestinationToOrigin {
		return 1
	}
	return 0
}

// JointSubtype says which half tour directions a joint half tour covers.
type JointSubtype int

const (
	SubtypePaired JointSubtype = iota + 1
	SubtypeOutbound
	SubtypeReturn
)

// Directions returns the half tour directions covered by the subtype.
func (s JointSubtype) Directions() []Direction {
	switch s {
	case SubtypePaired:
		return []Direction{OriginToDestination, DestinationToOrigin}
	case SubtypeOutbound:
		return []Direction{OriginToDestination}
	case SubtypeReturn:
		return []Direction{DestinationToOrigin}
	default:
		return nil
	}
}

// String implements fmt.Stringer.
func (s JointSubtype) String() string {
	switch s {
	case SubtypePaired:
		return "paired"
	case SubtypeOutbound:
		return "outbound"
	case SubtypeReturn:
		return "return"
	default:
		return "none"
	}
}

// PersonType is the classic eight-way person classification.
type PersonType int

const (
	PersonTypeFullTimeWorker PersonType = iota + 1
	PersonTypePartTimeWorker
	PersonTypeRetired
	PersonTypeNonWorkingAdult
	PersonTypeUniversityStudent
	PersonTypeDrivingAgeStudent
	PersonTypeChildAge5Through15
	PersonTypeChildUnder5
)

// String implements fmt.Stringer.
func (t PersonType) String() string {
	switch t {
	case PersonTypeFullTimeWorker:
		return "full_time_worker"
	case PersonTypePartTimeWorker:
		return "part_time_worker"
	case PersonTypeRetired:
		return "retired"
	case PersonTypeNonWorkingAdult:
		return "non_working_adult"
	case PersonTypeUniversityStudent:
		return "university_student"
	case PersonTypeDrivingAgeStudent:
		return "driving_age_student"
	case PersonTypeChildAge5Through15:
		return "child_5_15"
	case PersonTypeChildUnder5:
		return "child_under_5"
	default:
		return fmt.Sprintf("person_type(%d)", int(t))
	}
}

// TourState is the derived progress of a tour through its sub-state machine.
type TourState int

const (
	TourDestinationUnset TourState = iota
	TourDestinationSet
	TourModeTimeSet
	TourHalfTourSimulated
	TourFinalized
)

// String implements fmt.Stringer.
func (s TourState) String() string {
	switch s {
	case TourDestinationUnset:
		return "destination_unset"
	case TourDestinationSet:
		return "destination_set"
	case TourModeTimeSet:
		return "mode_time_set"
	case TourHalfTourSimulated:
		return "half_tour_simulated"
	case TourFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}
