package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
)

// generateJointTours offers the household fully joint non-mandatory tours
// while at least two members leave home.
func (r *householdRun) generateJointTours() error {
	alternatives := allAvailable(len(model.NonMandatoryPurposes) + 1)
	for i := 0; i < r.sim.cfg.MaxJointTours; i++ {
		available := make([]bool, len(r.day.PersonDays))
		count := 0
		for j, pd := range r.day.PersonDays {
			if pd.PatternType != model.PatternHome && pd.PatternType != model.PatternUnset {
				available[j] = true
				count++
			}
		}
		if count < 2 {
			return nil
		}

		alt, status, err := r.suite.JointTourGeneration.Choose(r.env, choice.Generation{
			Day:       r.day,
			Available: alternatives,
			Iteration: i,
		})
		if err := r.record(choice.JointTourGeneration, status, err); err != nil {
			return err
		}
		if !status.IsValid() {
			r.day.Invalidate()
			return nil
		}
		if alt == 0 {
			return nil
		}
		if alt < 0 || alt >= len(alternatives) {
			return invariantError("joint tour generation chose alternative %d of %d", alt, len(alternatives))
		}
		purpose := model.NonMandatoryPurposes[alt-1]

		group, err := r.participate(choice.JointTourParticipation, r.suite.JointTourParticipation, choice.Participation{
			Day:         r.day,
			Candidates:  r.day.PersonDays,
			Available:   available,
			Alternative: alt,
			Purpose:     purpose,
		})
		if err != nil || group == nil {
			return err
		}

		designated := group[0]
		for _, pd := range group[1:] {
			if pd.Person.Age > designated.Person.Age {
				designated = pd
			}
		}
		jt := r.day.CreateJointTour(purpose)
		r.joinTour(jt, designated)
		for _, pd := range group {
			if pd != designated && !r.joinTour(jt, pd) {
				break
			}
		}
	}
	return nil
}

func (r *householdRun) joinTour(jt *model.JointTour, pd *model.PersonDay) bool {
	if !jt.AddParticipant(pd) {
		return false
	}
	t := pd.CreateTour(jt.Purpose)
	t.JointTourSequence = jt.Sequence
	jt.Participants[len(jt.Participants)-1].TourSequence = t.Sequence
	return true
}

// simulateJointTours simulates each joint tour once, on the designated
// participant inside the merged window, and copies the result to the rest.
func (r *householdRun) simulateJointTours() error {
	for _, jt := range r.day.JointTours {
		tours, err := r.participantTours(jt.Participants)
		if err != nil {
			return err
		}
		refreshWindow(jt.Window, r.participantDays(jt.Participants))

		src := tours[0]
		src.Window = jt.Window
		if err := r.simulateTour(src); err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}

		for _, t := range tours[1:] {
			if !t.DestinationSet {
				t.SetDestination(src.DestinationParcel)
			}
			t.SetModeTime(cloneMode(src.Mode), src.DestinationArrivalTime, src.DestinationDepartureTime)
			checkTimes(t)
			if !t.IsValid {
				return nil
			}
			for _, dir := range model.Directions {
				cloneHalfTour(src, t, dir)
			}
			r.finalize(t)
			if !t.IsValid {
				return nil
			}
		}
	}
	return nil
}
