package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/timewindow"
)

// simulateTour advances a tour through destination, mode and time,
// subtours, both half tours and finalization. Every step checks whether it
// already happened so results fixed by joint coordination are kept.
func (r *householdRun) simulateTour(t *model.Tour) error {
	if err := r.advanceTour(t); err != nil {
		return tourError(err, t)
	}
	return nil
}

func (r *householdRun) advanceTour(t *model.Tour) error {
	if !t.IsValid || t.Finalized {
		return nil
	}

	if !t.DestinationSet {
		status, err := r.suite.TourDestination.RunTour(r.env, t)
		if err := r.record(choice.TourDestination, status, err); err != nil {
			return err
		}
		if !status.IsValid() {
			t.Invalidate()
			return nil
		}
		if !t.DestinationSet {
			return invariantError("destination model returned ok without a destination")
		}
	}

	if !t.ModeTimeSet {
		if err := r.chooseModeTime(t); err != nil {
			return err
		}
		if !t.IsValid {
			return nil
		}
	}

	if !t.IsSubtour() && t.Purpose == model.PurposeWork && !t.SubtoursGenerated {
		if err := r.generateSubtours(t); err != nil {
			return err
		}
		if !t.Valid() {
			t.Invalidate()
			return nil
		}
	}

	for _, dir := range model.Directions {
		if t.IsHalfTourSimulated(dir) || r.pendingJointHalfTour(t, dir) {
			continue
		}
		if err := r.simulateHalfTour(t, dir, nil); err != nil {
			return err
		}
		if !t.IsValid {
			return nil
		}
	}

	if t.IsHalfTourSimulated(model.OriginToDestination) && t.IsHalfTourSimulated(model.DestinationToOrigin) {
		r.finalize(t)
	}
	return nil
}

// chooseModeTime runs the mode and time model and checks the result.
func (r *householdRun) chooseModeTime(t *model.Tour) error {
	status, err := r.suite.TourModeTime.RunTour(r.env, t)
	if err := r.record(choice.TourModeTime, status, err); err != nil {
		return err
	}
	if !status.IsValid() {
		t.Invalidate()
		return nil
	}
	if !t.ModeTimeSet {
		return invariantError("mode and time model returned ok without setting times")
	}
	checkTimes(t)
	return nil
}

// checkTimes invalidates a tour whose stay at the destination is out of
// order or collides with its window.
func checkTimes(t *model.Tour) {
	arr, dep := t.DestinationArrivalTime, t.DestinationDepartureTime
	if arr < timewindow.FirstMinute || arr > dep || dep > timewindow.MinutesInDay {
		t.Invalidate()
		return
	}
	if !t.TimeWindow().EntireSpanIsAvailable(arr, dep) {
		t.Invalidate()
		return
	}
	if !subtoursInsideStay(t) {
		t.Invalidate()
	}
}

// subtoursInsideStay reports whether every subtour starts and ends within
// the parent's stay at its destination. Joint coordination can move the
// stay after the subtours were placed.
func subtoursInsideStay(t *model.Tour) bool {
	for _, st := range t.Subtours {
		if st.StartTime() < t.DestinationArrivalTime || st.EndTime() > t.DestinationDepartureTime {
			return false
		}
	}
	return true
}

// generateSubtours runs work-based subtour generation for a home-based work
// tour and simulates each subtour inside the parent's destination window.
func (r *householdRun) generateSubtours(t *model.Tour) error {
	t.SubtoursGenerated = true
	available := allAvailable(len(subtourPurposes) + 1)
	for i := 0; i < r.sim.cfg.MaxSubtours; i++ {
		alt, status, err := r.suite.WorkBasedSubtourGeneration.Choose(r.env, choice.Generation{
			Day:       r.day,
			PersonDay: t.PersonDay,
			Tour:      t,
			Available: available,
			Iteration: i,
		})
		if err := r.record(choice.WorkBasedSubtourGeneration, status, err); err != nil {
			return err
		}
		if !status.IsValid() {
			t.Invalidate()
			return nil
		}
		if alt == 0 {
			break
		}
		if alt < 0 || alt >= len(available) {
			return invariantError("subtour generation chose alternative %d of %d", alt, len(available))
		}
		t.CreateSubtour(subtourPurposes[alt-1])
	}

	for _, st := range t.Subtours {
		if err := r.simulateTour(st); err != nil {
			return err
		}
		if !st.IsValid {
			return nil
		}
	}
	return nil
}

// pendingJointHalfTour reports whether the half tour's trips come from a
// joint half tour rather than from this tour's own trip loop.
func (r *householdRun) pendingJointHalfTour(t *model.Tour, dir model.Direction) bool {
	if t.PartialHalfTour(dir) != 0 {
		return true
	}
	seq := t.FullHalfTour(dir)
	if seq == 0 || seq > len(r.day.FullHalfTours) {
		return false
	}
	src := r.day.FullHalfTours[seq-1].Participants[0]
	return src.PersonSequence != t.PersonDay.Person.Sequence || src.TourSequence != t.Sequence
}

// finalize marks the tour's full travel span busy. Subtours mark the
// parent's destination window; everything else marks the person's window.
func (r *householdRun) finalize(t *model.Tour) {
	start, end := t.StartTime(), t.EndTime()
	w := t.PersonDay.Window
	if t.IsSubtour() {
		w = t.ParentTour.DestinationWindow()
	}
	if start < timewindow.FirstMinute || end > timewindow.MinutesInDay || start > end ||
		!w.EntireSpanIsAvailable(start, end) || !subtoursInsideStay(t) {
		t.Invalidate()
		return
	}
	w.SetBusyMinutes(start, end+1)
	t.Finalized = true
	if !t.IsSubtour() {
		t.PersonDay.SimulatedTours[t.Purpose]++
	}
}
