package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
)

// subtourPurposes are the work-based subtour alternatives after "none".
var subtourPurposes = []model.Purpose{
	model.PurposeWork,
	model.PurposePersonalBusiness,
	model.PurposeShopping,
	model.PurposeMeal,
}

func (r *householdRun) runHouseholdDayModels() error {
	status, err := r.suite.HouseholdDayPattern.RunHouseholdDay(r.env, r.day)
	if err := r.record(choice.HouseholdDayPattern, status, err); err != nil {
		return err
	}
	if !status.IsValid() {
		r.day.Invalidate()
		return nil
	}
	for _, pd := range r.day.PersonDays {
		if pd.PatternType == model.PatternUnset {
			pd.Invalidate()
		}
	}
	if !r.day.Valid() {
		return nil
	}

	status, err = r.suite.PrimaryPriorityTime.RunHouseholdDay(r.env, r.day)
	if err := r.record(choice.PrimaryPriorityTime, status, err); err != nil {
		return err
	}
	if !status.IsValid() {
		r.day.Invalidate()
	}
	return nil
}

// generateMandatoryTours creates the planned work and school tours of every
// person with a mandatory pattern. Tours to a known usual location start
// with their destination fixed.
func (r *householdRun) generateMandatoryTours() error {
	for _, pd := range r.day.PersonDays {
		if pd.PatternType != model.PatternMandatory {
			continue
		}
		status, err := r.suite.MandatoryTourGeneration.RunPersonDay(r.env, pd)
		if err := r.record(choice.MandatoryTourGeneration, status, err); err != nil {
			return personDayError(err, pd)
		}
		if !status.IsValid() || pd.PlannedWorkTours+pd.PlannedSchoolTours == 0 {
			pd.Invalidate()
			return nil
		}
		createMandatory(pd, model.PurposeWork, pd.PlannedWorkTours)
		createMandatory(pd, model.PurposeSchool, pd.PlannedSchoolTours)
	}
	return nil
}

func createMandatory(pd *model.PersonDay, purpose model.Purpose, n int) {
	usual := pd.Person.UsualLocation(purpose)
	for i := 0; i < n; i++ {
		t := pd.CreateTour(purpose)
		if usual != 0 {
			t.SetDestination(usual)
		}
	}
}

// generateIndividualTours runs the individual non-mandatory generation loop
// for every person leaving home.
func (r *householdRun) generateIndividualTours() error {
	for _, pd := range r.day.PersonDays {
		if pd.PatternType == model.PatternHome || pd.PatternType == model.PatternUnset {
			continue
		}
		if err := r.generateIndividual(pd); err != nil {
			return personDayError(err, pd)
		}
		if !pd.Valid() {
			return nil
		}
	}
	return nil
}

func (r *householdRun) generateIndividual(pd *model.PersonDay) error {
	available := allAvailable(len(model.NonMandatoryPurposes) + 1)
	for i := 0; i < r.sim.cfg.MaxIndividualTours; i++ {
		alt, status, err := r.suite.IndividualTourGeneration.Choose(r.env, choice.Generation{
			Day:       r.day,
			PersonDay: pd,
			Available: available,
			Iteration: i,
		})
		if err := r.record(choice.IndividualTourGeneration, status, err); err != nil {
			return err
		}
		if !status.IsValid() {
			pd.Invalidate()
			return nil
		}
		if alt == 0 {
			return nil
		}
		if alt < 0 || alt >= len(available) {
			return invariantError("individual tour generation chose alternative %d of %d", alt, len(available))
		}
		pd.CreateTour(model.NonMandatoryPurposes[alt-1])
	}
	return nil
}

// resolveJointHalfTours turns the joint half tours of the attempt into tours
// and then checks that non-mandatory patterns produced at least one tour.
func (r *householdRun) resolveJointHalfTours() error {
	for _, f := range r.day.FullHalfTours {
		if err := r.resolveFullHalfTour(f); err != nil {
			return err
		}
	}
	for _, p := range r.day.PartialHalfTours {
		if err := r.resolvePartialHalfTour(p); err != nil {
			return err
		}
	}
	for _, pd := range r.day.PersonDays {
		if pd.PatternType == model.PatternNonMandatory && pd.TotalCreatedTours() == 0 {
			pd.Invalidate()
		}
	}
	return nil
}

// simulateMandatoryTours simulates the joint half tours first, since they fix
// times for several persons at once, then every remaining work and school
// tour.
func (r *householdRun) simulateMandatoryTours() error {
	for _, f := range r.day.FullHalfTours {
		if err := r.simulateFullHalfTour(f); err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}
	}
	for _, p := range r.day.PartialHalfTours {
		if err := r.simulatePartialHalfTour(p); err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}
	}
	return r.simulatePersonTours(func(t *model.Tour) bool {
		return t.Purpose.IsMandatory()
	})
}

func (r *householdRun) simulateNonMandatoryTours() error {
	return r.simulatePersonTours(func(t *model.Tour) bool {
		return !t.Purpose.IsMandatory() && !t.IsJoint()
	})
}

func (r *householdRun) simulatePersonTours(include func(*model.Tour) bool) error {
	for _, pd := range r.day.PersonDays {
		for _, t := range pd.Tours {
			if t.Finalized || !include(t) {
				continue
			}
			if err := r.simulateTour(t); err != nil {
				return personDayError(err, pd)
			}
			if !pd.Valid() {
				return nil
			}
		}
	}
	return nil
}

func allAvailable(n int) []bool {
	available := make([]bool, n)
	for i := range available {
		available[i] = true
	}
	return available
}
