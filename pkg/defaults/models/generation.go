package models

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
)

// JointHalfTours favors partial drop-offs, which dominate joint travel to
// school.
type JointHalfTours struct{}

func (JointHalfTours) Name() string { return "reference_joint_half_tours" }

var jointHalfTourWeights = []float64{3.0, 0.4, 0.3, 0.3, 0.3, 0.6, 0.4}

func (JointHalfTours) Choose(env *choice.Env, g choice.Generation) (int, choice.Status, error) {
	weights := append([]float64(nil), jointHalfTourWeights...)
	weights[0] = decay(weights[0], g.Iteration)
	return pick(env.Random.Uniform01(), weights, g.Available), choice.OK, nil
}

// JointTours generates fully joint non-mandatory tours.
type JointTours struct{}

func (JointTours) Name() string { return "reference_joint_tours" }

func (JointTours) Choose(env *choice.Env, g choice.Generation) (int, choice.Status, error) {
	weights := purposeWeights(model.NonMandatoryPurposes, nonMandatoryWeights)
	weights[0] = decay(12, g.Iteration)
	return pick(env.Random.Uniform01(), weights, g.Available), choice.OK, nil
}

// IndividualTours generates a person's own non-mandatory tours. People on
// a non-mandatory pattern almost always make a first tour; people with a
// mandatory pattern seldom add one.
type IndividualTours struct{}

func (IndividualTours) Name() string { return "reference_individual_tours" }

func (IndividualTours) Choose(env *choice.Env, g choice.Generation) (int, choice.Status, error) {
	weights := purposeWeights(model.NonMandatoryPurposes, nonMandatoryWeights)
	none := 8.0
	if g.PersonDay != nil && g.PersonDay.PatternType == model.PatternNonMandatory {
		none = 2.0
		if g.Iteration == 0 && g.PersonDay.TotalCreatedTours() == 0 {
			none = 0
		}
	}
	weights[0] = decay(none, g.Iteration)
	alt := pick(env.Random.Uniform01(), weights, g.Available)
	return alt, choice.OK, nil
}

// Subtours generates work-based subtours; lunch is the common case.
type Subtours struct{}

func (Subtours) Name() string { return "reference_subtours" }

var subtourWeights = []float64{6.0, 0.3, 0.3, 0.2, 0.8}

func (Subtours) Choose(env *choice.Env, g choice.Generation) (int, choice.Status, error) {
	weights := make([]float64, len(g.Available))
	copy(weights, subtourWeights)
	weights[0] = decay(weights[0], g.Iteration)
	return pick(env.Random.Uniform01(), weights, g.Available), choice.OK, nil
}

// Participation includes the first available candidate and each other
// candidate with probability 0.8. Draws come from the synchronized stream
// so household members see the same sequence.
type Participation struct{}

func (Participation) Name() string { return "reference_participation" }

func (Participation) Participate(env *choice.Env, p choice.Participation) ([]bool, choice.Status, error) {
	u := env.Random.Synchronized()
	in := make([]bool, len(p.Candidates))
	first := true
	for i := range p.Candidates {
		if !p.Available[i] {
			continue
		}
		if first {
			in[i] = true
			first = false
			continue
		}
		in[i] = u.Uniform01() < 0.8
	}
	return in, choice.OK, nil
}

// Chauffeur picks the oldest driver.
type Chauffeur struct{}

func (Chauffeur) Name() string { return "reference_chauffeur" }

func (Chauffeur) ChooseChauffeur(_ *choice.Env, _ *model.HouseholdDay, candidates []*model.PersonDay) (int, choice.Status, error) {
	if len(candidates) == 0 {
		return 0, choice.Invalid, nil
	}
	best := 0
	for i, pd := range candidates {
		if pd.Person.Age > candidates[best].Person.Age {
			best = i
		}
	}
	return best, choice.OK, nil
}
