package simulation

import (
	"sort"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/skim"
)

// Joint half tour alternatives. 1-3 are full paired/outbound/return, 4-6 are
// the partial variants in the same order.
const (
	jointHalfTourNone     = 0
	jointHalfTourPartial  = 4
	jointHalfTourAltCount = 7
)

func jointHalfTourKind(alt int) (partial bool, subtype model.JointSubtype) {
	if alt >= jointHalfTourPartial {
		return true, model.JointSubtype(alt - jointHalfTourPartial + 1)
	}
	return false, model.JointSubtype(alt)
}

// generateJointHalfTours repeatedly offers the household a full or partial
// joint half tour among its ranked members until it declines or nothing is
// available.
func (r *householdRun) generateJointHalfTours() error {
	ranked := r.policy.Rank(r.day.PersonDays)
	if len(ranked) < 2 {
		return nil
	}

	for i := 0; i < r.sim.cfg.MaxJointHalfTours; i++ {
		persons, alternatives := r.jointHalfTourAvailability(ranked)
		if !anyAlternative(alternatives) {
			return nil
		}

		alt, status, err := r.suite.JointHalfTourGeneration.Choose(r.env, choice.Generation{
			Day:       r.day,
			Available: alternatives,
			Iteration: i,
		})
		if err := r.record(choice.JointHalfTourGeneration, status, err); err != nil {
			return err
		}
		if !status.IsValid() {
			r.day.Invalidate()
			return nil
		}
		if alt == jointHalfTourNone {
			return nil
		}
		if alt < 0 || alt >= jointHalfTourAltCount || !alternatives[alt] {
			return invariantError("joint half tour generation chose unavailable alternative %d", alt)
		}

		partial, subtype := jointHalfTourKind(alt)
		if partial {
			err = r.createPartialHalfTour(ranked, persons[alt], alt, subtype)
		} else {
			err = r.createFullHalfTour(ranked, persons[alt], alt, subtype)
		}
		if err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}
	}
	return nil
}

// jointHalfTourAvailability builds the [alternative][person] availability
// table and the alternative availability derived from it.
func (r *householdRun) jointHalfTourAvailability(ranked []*model.PersonDay) ([][]bool, []bool) {
	persons := make([][]bool, jointHalfTourAltCount)
	alternatives := make([]bool, jointHalfTourAltCount)
	alternatives[jointHalfTourNone] = true

	for alt := 1; alt < jointHalfTourAltCount; alt++ {
		partial, subtype := jointHalfTourKind(alt)
		persons[alt] = make([]bool, len(ranked))
		count, drivers := 0, 0
		for i, pd := range ranked {
			if !halfTourCandidate(pd, partial, subtype) {
				continue
			}
			persons[alt][i] = true
			count++
			if r.policy.IsDrivingAge(pd.Person) {
				drivers++
			}
		}
		alternatives[alt] = count >= 2 && (!partial || drivers > 0)
	}
	return persons, alternatives
}

func halfTourCandidate(pd *model.PersonDay, partial bool, subtype model.JointSubtype) bool {
	if pd.PatternType == model.PatternHome || pd.PatternType == model.PatternUnset {
		return false
	}
	for _, dir := range subtype.Directions() {
		if pd.IsClaimed(dir) {
			return false
		}
	}
	return !partial || pd.MandatoryUsualLocationTour() != nil
}

func anyAlternative(alternatives []bool) bool {
	for alt := 1; alt < len(alternatives); alt++ {
		if alternatives[alt] {
			return true
		}
	}
	return false
}

// participate runs a participation model and returns the chosen, available
// candidates. A nil group means the day was invalidated.
func (r *householdRun) participate(id choice.ID, m choice.ParticipationModel, p choice.Participation) ([]*model.PersonDay, error) {
	vector, status, err := m.Participate(r.env, p)
	if err := r.record(id, status, err); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		r.day.Invalidate()
		return nil, nil
	}
	if len(vector) != len(p.Candidates) {
		err := invariantError("%s returned %d flags for %d candidates", id, len(vector), len(p.Candidates))
		if len(p.Candidates) > 0 {
			// Charged to the lead candidate.
			return nil, personDayError(err, p.Candidates[0])
		}
		return nil, err
	}
	var group []*model.PersonDay
	for i, in := range vector {
		if in && p.Available[i] {
			group = append(group, p.Candidates[i])
		}
	}
	if len(group) < 2 {
		r.day.Invalidate()
		return nil, nil
	}
	return group, nil
}

func (r *householdRun) createFullHalfTour(ranked []*model.PersonDay, available []bool, alt int, subtype model.JointSubtype) error {
	group, err := r.participate(choice.FullHalfTourParticipation, r.suite.FullHalfTourParticipation, choice.Participation{
		Day:         r.day,
		Candidates:  ranked,
		Available:   available,
		Alternative: alt,
	})
	if err != nil || group == nil {
		return err
	}

	designated := group[0]
	for _, pd := range group[1:] {
		if betterDesignated(pd, designated) {
			designated = pd
		}
	}

	f := r.day.CreateFullHalfTour(subtype)
	f.AddParticipant(designated)
	for _, pd := range group {
		if pd != designated {
			f.AddParticipant(pd)
		}
	}
	claim(group, subtype)
	return nil
}

// betterDesignated prefers persons with a usual-location mandatory tour,
// then the older person.
func betterDesignated(a, b *model.PersonDay) bool {
	aTour, bTour := a.MandatoryUsualLocationTour() != nil, b.MandatoryUsualLocationTour() != nil
	if aTour != bTour {
		return aTour
	}
	return a.Person.Age > b.Person.Age
}

func (r *householdRun) createPartialHalfTour(ranked []*model.PersonDay, available []bool, alt int, subtype model.JointSubtype) error {
	group, err := r.participate(choice.PartialHalfTourParticipation, r.suite.PartialHalfTourParticipation, choice.Participation{
		Day:         r.day,
		Candidates:  ranked,
		Available:   available,
		Alternative: alt,
	})
	if err != nil || group == nil {
		return err
	}

	var drivers []*model.PersonDay
	for _, pd := range group {
		if r.policy.IsDrivingAge(pd.Person) {
			drivers = append(drivers, pd)
		}
	}
	if len(drivers) == 0 {
		r.day.Invalidate()
		return nil
	}

	idx, status, err := r.suite.PartialHalfTourChauffeur.ChooseChauffeur(r.env, r.day, drivers)
	if err := r.record(choice.PartialHalfTourChauffeur, status, err); err != nil {
		return err
	}
	if !status.IsValid() {
		r.day.Invalidate()
		return nil
	}
	if idx < 0 || idx >= len(drivers) {
		return personDayError(invariantError("chauffeur model chose %d of %d drivers", idx, len(drivers)), group[0])
	}
	chauffeur := drivers[idx]

	passengers := make([]*model.PersonDay, 0, len(group)-1)
	for _, pd := range group {
		if pd != chauffeur {
			passengers = append(passengers, pd)
		}
	}
	from := r.env.Parcel(chauffeur.MandatoryUsualLocationTour().DestinationParcel)
	sort.SliceStable(passengers, func(i, j int) bool {
		di := skim.Distance(from, r.env.Parcel(passengers[i].MandatoryUsualLocationTour().DestinationParcel))
		dj := skim.Distance(from, r.env.Parcel(passengers[j].MandatoryUsualLocationTour().DestinationParcel))
		return di < dj
	})

	p := r.day.CreatePartialHalfTour(subtype)
	p.Chauffeur = chauffeur.Person.Sequence
	p.AddParticipant(chauffeur)
	for _, pd := range passengers {
		p.AddParticipant(pd)
	}
	claim(group, subtype)
	return nil
}

func claim(group []*model.PersonDay, subtype model.JointSubtype) {
	for _, pd := range group {
		for _, dir := range subtype.Directions() {
			pd.Claim(dir)
		}
	}
}

// resolveFullHalfTour binds each participant to a tour. The designated
// person's usual-location tour is the source; others reuse their own
// mandatory tour when it goes to the same place and get an escort tour
// otherwise.
func (r *householdRun) resolveFullHalfTour(f *model.FullHalfTour) error {
	designated := r.day.PersonDay(f.Participants[0].PersonSequence)
	if designated == nil {
		return participantError(invariantError("full half tour %d has unknown participant", f.Sequence), f.Participants[0].PersonSequence)
	}
	src := designated.MandatoryUsualLocationTour()
	if src == nil {
		src = designated.CreateTour(model.PurposeEscort)
	}
	r.linkFull(f, 0, src)

	for i := 1; i < len(f.Participants); i++ {
		pd := r.day.PersonDay(f.Participants[i].PersonSequence)
		if pd == nil {
			return participantError(invariantError("full half tour %d has unknown participant", f.Sequence), f.Participants[i].PersonSequence)
		}
		t := pd.MandatoryUsualLocationTour()
		if t == nil || !src.DestinationSet || t.DestinationParcel != src.DestinationParcel {
			t = pd.CreateTour(model.PurposeEscort)
		}
		r.linkFull(f, i, t)
	}
	return nil
}

func (r *householdRun) linkFull(f *model.FullHalfTour, i int, t *model.Tour) {
	for _, dir := range f.Subtype.Directions() {
		t.LinkFullHalfTour(dir, f.Sequence)
	}
	f.Participants[i].TourSequence = t.Sequence
}

func (r *householdRun) resolvePartialHalfTour(p *model.PartialHalfTour) error {
	for i, part := range p.Participants {
		pd := r.day.PersonDay(part.PersonSequence)
		if pd == nil {
			return participantError(invariantError("partial half tour %d has unknown participant", p.Sequence), part.PersonSequence)
		}
		t := pd.MandatoryUsualLocationTour()
		if t == nil {
			return personDayError(invariantError("partial half tour participant has no usual-location tour"), pd)
		}
		for _, dir := range p.Subtype.Directions() {
			t.LinkPartialHalfTour(dir, p.Sequence)
		}
		p.Participants[i].TourSequence = t.Sequence
	}
	return nil
}

// simulateFullHalfTour simulates the source tour inside the group's merged
// window and clones its shared half tours onto every other participant.
func (r *householdRun) simulateFullHalfTour(f *model.FullHalfTour) error {
	tours, err := r.participantTours(f.Participants)
	if err != nil {
		return err
	}
	refreshWindow(f.Window, r.participantDays(f.Participants))

	src := tours[0]
	if !src.ModeTimeSet {
		src.Window = f.Window
	}
	if err := r.simulateTour(src); err != nil {
		return err
	}
	if !src.IsValid {
		return nil
	}

	for _, t := range tours[1:] {
		if !t.DestinationSet {
			t.SetDestination(src.DestinationParcel)
		}
		switch f.Subtype {
		case model.SubtypePaired:
			t.SetModeTime(cloneMode(src.Mode), src.DestinationArrivalTime, src.DestinationDepartureTime)
		default:
			if !t.ModeTimeSet {
				if err := r.chooseModeTime(t); err != nil {
					return tourError(err, t)
				}
				if !t.IsValid {
					return nil
				}
			}
			arr, dep := t.DestinationArrivalTime, t.DestinationDepartureTime
			if f.Subtype == model.SubtypeOutbound {
				arr = src.DestinationArrivalTime
			} else {
				dep = src.DestinationDepartureTime
			}
			t.SetModeTime(cloneMode(src.Mode), arr, dep)
		}
		checkTimes(t)
		if !t.IsValid {
			return nil
		}
		for _, dir := range f.Subtype.Directions() {
			cloneHalfTour(src, t, dir)
		}
		if err := r.simulateTour(t); err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}
	}
	return nil
}

// simulatePartialHalfTour runs the chauffeur's half tour with a forced stop
// at each passenger's destination and times each passenger's single trip to
// the matching stop.
func (r *householdRun) simulatePartialHalfTour(p *model.PartialHalfTour) error {
	tours, err := r.participantTours(p.Participants)
	if err != nil {
		return err
	}
	for _, t := range tours {
		if t.ModeTimeSet {
			continue
		}
		if err := r.chooseModeTime(t); err != nil {
			return tourError(err, t)
		}
		if !t.IsValid {
			return nil
		}
	}

	chauffeur, passengers := tours[0], tours[1:]
	for _, dir := range p.Subtype.Directions() {
		if !chauffeur.IsHalfTourSimulated(dir) {
			stops := make([]int, len(passengers))
			for k, pt := range passengers {
				stops[k] = pt.DestinationParcel
			}
			if err := r.simulateHalfTour(chauffeur, dir, stops); err != nil {
				return tourError(err, chauffeur)
			}
			if !chauffeur.IsValid {
				return nil
			}
		}

		trips := chauffeur.HalfTour(dir).Trips
		if len(trips) < len(passengers)+1 {
			return tourError(invariantError("chauffeur half tour has %d trips for %d passengers", len(trips), len(passengers)), chauffeur)
		}
		for k, pt := range passengers {
			passengerHalfTour(pt, dir, trips[k+1], trips[len(trips)-1])
			checkTimes(pt)
			if !pt.IsValid {
				return nil
			}
		}
	}

	for _, t := range tours {
		if err := r.simulateTour(t); err != nil {
			return err
		}
		if !r.day.Valid() {
			return nil
		}
	}
	return nil
}

// passengerHalfTour gives a passenger a single HOV passenger trip between
// home and their destination, timed to the chauffeur's stop there.
func passengerHalfTour(t *model.Tour, dir model.Direction, stop, last *model.Trip) {
	h := t.HalfTour(dir)
	h.Trips = h.Trips[:0]
	trip := h.CreateTrip()
	trip.Mode = model.ModeHOVPassenger
	trip.IsToTourOrigin = true

	if dir == model.OriginToDestination {
		t.SetModeTime(t.Mode, stop.ArrivalTime, t.DestinationDepartureTime)
		trip.OriginParcel, trip.OriginPurpose = t.OriginParcel, model.PurposeNoneOrHome
		trip.DestinationParcel, trip.DestinationPurpose = t.DestinationParcel, t.Purpose
		trip.DepartureTime, trip.ArrivalTime = last.DepartureTime, stop.ArrivalTime
	} else {
		t.SetModeTime(t.Mode, t.DestinationArrivalTime, stop.DepartureTime)
		trip.OriginParcel, trip.OriginPurpose = t.DestinationParcel, t.Purpose
		trip.DestinationParcel, trip.DestinationPurpose = t.OriginParcel, model.PurposeNoneOrHome
		trip.DepartureTime, trip.ArrivalTime = stop.DepartureTime, last.ArrivalTime
	}
	h.SimulatedTrips = 1
	t.SetHalfTourSimulated(dir)
}
