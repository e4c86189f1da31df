package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/timewindow"
)

// cloneMode maps the source's mode to the mode of a person riding along.
func cloneMode(m model.Mode) model.Mode {
	if m == model.ModeHOVDriver {
		return model.ModeHOVPassenger
	}
	return m
}

// cloneHalfTour copies the trips of src's half tour onto dst.
func cloneHalfTour(src, dst *model.Tour, dir model.Direction) {
	from, to := src.HalfTour(dir), dst.HalfTour(dir)
	to.Trips = make([]*model.Trip, 0, len(from.Trips))
	for _, trip := range from.Trips {
		c := *trip
		c.IsCloned = true
		c.Mode = cloneMode(trip.Mode)
		to.Trips = append(to.Trips, &c)
	}
	to.SimulatedTrips = from.SimulatedTrips
	dst.SetHalfTourSimulated(dir)
}

// refreshWindow rebuilds a joint window from the participants' current
// windows.
func refreshWindow(w *timewindow.Window, pds []*model.PersonDay) {
	w.Reset()
	for _, pd := range pds {
		w.IncorporateAnotherTimeWindow(pd.Window)
	}
}

func (r *householdRun) participantDays(parts []model.Participant) []*model.PersonDay {
	pds := make([]*model.PersonDay, 0, len(parts))
	for _, p := range parts {
		if pd := r.day.PersonDay(p.PersonSequence); pd != nil {
			pds = append(pds, pd)
		}
	}
	return pds
}

// participantTours resolves every participant to its linked tour.
func (r *householdRun) participantTours(parts []model.Participant) ([]*model.Tour, error) {
	if len(parts) == 0 {
		return nil, invariantError("joint record without participants")
	}
	tours := make([]*model.Tour, len(parts))
	for i, p := range parts {
		t := r.day.Tour(p)
		if t == nil {
			return nil, participantError(invariantError("participant has no tour %d", p.TourSequence), p.PersonSequence)
		}
		tours[i] = t
	}
	return tours, nil
}
