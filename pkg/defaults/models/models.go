// Package models provides the reference choice models bound by default.
//
// They are simple, fast rules of thumb driven by the household's random
// stream. They exist so the simulator can run end to end without estimated
// coefficients; production runs register their own models for the IDs they
// replace.
package models

import (
	"math"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
)

// pick draws an index with probability proportional to its weight, skipping
// unavailable entries. It returns 0 when nothing has weight.
func pick(u float64, weights []float64, available []bool) int {
	total := 0.0
	for i, w := range weights {
		if i < len(available) && available[i] && w > 0 {
			total += w
		}
	}
	if total == 0 {
		return 0
	}
	target := u * total
	last := 0
	for i, w := range weights {
		if i >= len(available) || !available[i] || w <= 0 {
			continue
		}
		last = i
		if target < w {
			return i
		}
		target -= w
	}
	return last
}

// decay scales the "none" weight up with each iteration so generation loops
// settle quickly.
func decay(base float64, iteration int) float64 {
	return base * math.Pow(2, float64(iteration))
}

func purposeWeights(purposes []model.Purpose, table map[model.Purpose]float64) []float64 {
	weights := make([]float64, len(purposes)+1)
	for i, p := range purposes {
		weights[i+1] = table[p]
	}
	return weights
}

var nonMandatoryWeights = map[model.Purpose]float64{
	model.PurposeEscort:           0.8,
	model.PurposePersonalBusiness: 1.2,
	model.PurposeShopping:         1.5,
	model.PurposeMeal:             0.6,
	model.PurposeSocial:           0.8,
	model.PurposeRecreation:       0.8,
	model.PurposeMedical:          0.3,
}

// Bindings returns a reference model for every ID. parcels are the
// candidate destinations for location choice.
func Bindings(parcels []int) map[choice.ID]choice.Model {
	participation := Participation{}
	return map[choice.ID]choice.Model{
		choice.VehicleAvailability:          VehicleAvailability{},
		choice.HouseholdDayPattern:          DayPattern{},
		choice.PrimaryPriorityTime:          PrimaryPriorityTime{},
		choice.MandatoryTourGeneration:      MandatoryTours{},
		choice.JointHalfTourGeneration:      JointHalfTours{},
		choice.FullHalfTourParticipation:    participation,
		choice.PartialHalfTourParticipation: participation,
		choice.PartialHalfTourChauffeur:     Chauffeur{},
		choice.JointTourGeneration:          JointTours{},
		choice.JointTourParticipation:       participation,
		choice.IndividualTourGeneration:     IndividualTours{},
		choice.TourDestination:              NewDestination(parcels),
		choice.TourModeTime:                 ModeTime{},
		choice.WorkBasedSubtourGeneration:   Subtours{},
		choice.IntermediateStopGeneration:   StopGeneration{},
		choice.IntermediateStopLocation:     NewStopLocation(parcels),
		choice.TripMode:                     TripMode{},
		choice.TripTime:                     TripTime{},
	}
}
