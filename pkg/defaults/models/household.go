package models

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
)

// VehicleAvailability fills in the vehicle count for households that did
// not report one (negative Vehicles): each driving-age member brings a car
// with probability 0.85.
type VehicleAvailability struct{}

func (VehicleAvailability) Name() string { return "reference_vehicle_availability" }

func (VehicleAvailability) RunHousehold(env *choice.Env, hh *model.Household) (choice.Status, error) {
	if hh.Vehicles >= 0 {
		return choice.OK, nil
	}
	n := 0
	for _, p := range hh.Persons {
		if p.Age >= env.DrivingAge && env.Random.Uniform01() < 0.85 {
			n++
		}
	}
	hh.Vehicles = n
	return choice.OK, nil
}

// patternShares are the mandatory, non-mandatory and home shares by
// person type.
var patternShares = map[model.PersonType][3]float64{
	model.PersonTypeFullTimeWorker:     {0.80, 0.12, 0.08},
	model.PersonTypePartTimeWorker:     {0.65, 0.22, 0.13},
	model.PersonTypeRetired:            {0, 0.60, 0.40},
	model.PersonTypeNonWorkingAdult:    {0, 0.65, 0.35},
	model.PersonTypeUniversityStudent:  {0.60, 0.25, 0.15},
	model.PersonTypeDrivingAgeStudent:  {0.85, 0.08, 0.07},
	model.PersonTypeChildAge5Through15: {0.88, 0.07, 0.05},
	model.PersonTypeChildUnder5:        {0.30, 0.40, 0.30},
}

// DayPattern draws a day pattern for every member. Small children never
// stay out while every adult is home.
type DayPattern struct{}

func (DayPattern) Name() string { return "reference_day_pattern" }

func (DayPattern) RunHouseholdDay(env *choice.Env, day *model.HouseholdDay) (choice.Status, error) {
	adultOut := false
	for _, pd := range day.PersonDays {
		shares, ok := patternShares[pd.Person.Type]
		if !ok {
			shares = patternShares[model.PersonTypeNonWorkingAdult]
		}
		available := []bool{true, shares[0] > 0, true, true}
		alt := pick(env.Random.Uniform01(), []float64{0, shares[0], shares[1], shares[2]}, available)
		pd.PatternType = model.PatternType(alt)
		if pd.PatternType != model.PatternHome && !pd.Person.IsChild() {
			adultOut = true
		}
	}
	if adultOut {
		return choice.OK, nil
	}
	for _, pd := range day.PersonDays {
		if pd.Person.Type == model.PersonTypeChildUnder5 && pd.PatternType != model.PatternHome {
			return choice.Invalid, nil
		}
	}
	return choice.OK, nil
}

// PrimaryPriorityTime flags days where two or more workers coordinate a
// shared block of time at home.
type PrimaryPriorityTime struct{}

func (PrimaryPriorityTime) Name() string { return "reference_primary_priority_time" }

func (PrimaryPriorityTime) RunHouseholdDay(env *choice.Env, day *model.HouseholdDay) (choice.Status, error) {
	day.PrimaryPriorityTimeFlag = day.Household.Workers() >= 2 && env.Random.Uniform01() < 0.3
	return choice.OK, nil
}

// MandatoryTours plans one work tour for workers (occasionally two) and one
// school tour for students.
type MandatoryTours struct{}

func (MandatoryTours) Name() string { return "reference_mandatory_tours" }

func (MandatoryTours) RunPersonDay(env *choice.Env, pd *model.PersonDay) (choice.Status, error) {
	p := pd.Person
	switch {
	case p.IsWorker():
		pd.PlannedWorkTours = 1
		if env.Random.Uniform01() < 0.05 {
			pd.PlannedWorkTours = 2
		}
		if p.UsualSchoolParcel != 0 && env.Random.Uniform01() < 0.1 {
			pd.PlannedSchoolTours = 1
		}
	case p.IsStudent():
		pd.PlannedSchoolTours = 1
	}
	return choice.OK, nil
}
