package model

// HouseholdDayRecord is the exported row for a simulated household day.
type HouseholdDayRecord struct {
	HouseholdID          int
	Day                  int
	Valid                bool
	Abandoned            bool
	AttemptedSimulations int
	JointTours           int
	FullHalfTours        int
	PartialHalfTours     int
}

// PersonDayRecord is the exported row for a person day.
type PersonDayRecord struct {
	HouseholdID    int
	Day            int
	PersonSequence int
	PatternType    string
	Tours          int
	WorkTours      int
	SchoolTours    int
	BusyMinutes    int
}

// TourRecord is the exported row for a tour or subtour.
type TourRecord struct {
	HouseholdID       int
	Day               int
	PersonSequence    int
	TourSequence      int
	ParentSequence    int
	Purpose           string
	Mode              string
	OriginParcel      int
	DestinationParcel int
	StartTime         int
	ArrivalTime       int
	DepartureTime     int
	EndTime           int
	JointTour         int
	FullHalfTour1     int
	FullHalfTour2     int
	PartialHalfTour1  int
	PartialHalfTour2  int
	OutboundTrips     int
	ReturnTrips       int
}

// TripRecord is the exported row for a trip.
type TripRecord struct {
	HouseholdID        int
	Day                int
	PersonSequence     int
	TourSequence       int
	HalfTour           int
	TripSequence       int
	OriginParcel       int
	DestinationParcel  int
	OriginPurpose      string
	DestinationPurpose string
	Mode               string
	DepartureTime      int
	ArrivalTime        int
	Cloned             bool
}

// Records is the full export projection of one household day.
type Records struct {
	HouseholdDay HouseholdDayRecord
	PersonDays   []PersonDayRecord
	Tours        []TourRecord
	Trips        []TripRecord
}

// Export projects a finalized household day into flat records. Trips are
// numbered in travel order within each half tour. An invalid day exports
// only its household day row.
func (d *HouseholdDay) Export() *Records {
	hhID := d.Household.ID
	r := &Records{
		HouseholdDay: HouseholdDayRecord{
			HouseholdID:          hhID,
			Day:                  d.Day,
			Valid:                d.IsValid,
			Abandoned:            d.Abandoned,
			AttemptedSimulations: d.AttemptedSimulations,
			JointTours:           len(d.JointTours),
			FullHalfTours:        len(d.FullHalfTours),
			PartialHalfTours:     len(d.PartialHalfTours),
		},
	}
	if !d.IsValid {
		return r
	}

	for _, pd := range d.PersonDays {
		r.PersonDays = append(r.PersonDays, PersonDayRecord{
			HouseholdID:    hhID,
			Day:            d.Day,
			PersonSequence: pd.Person.Sequence,
			PatternType:    pd.PatternType.String(),
			Tours:          len(pd.Tours),
			WorkTours:      pd.CreatedTours[PurposeWork],
			SchoolTours:    pd.CreatedTours[PurposeSchool],
			BusyMinutes:    pd.Window.BusyMinutes(),
		})
		for _, t := range pd.Tours {
			r.appendTour(d.Day, hhID, t)
			for _, st := range t.Subtours {
				r.appendTour(d.Day, hhID, st)
			}
		}
	}
	return r
}

func (r *Records) appendTour(day, hhID int, t *Tour) {
	rec := TourRecord{
		HouseholdID:       hhID,
		Day:               day,
		PersonSequence:    t.PersonDay.Person.Sequence,
		TourSequence:      t.Sequence,
		Purpose:           t.Purpose.String(),
		Mode:              t.Mode.String(),
		OriginParcel:      t.OriginParcel,
		DestinationParcel: t.DestinationParcel,
		StartTime:         t.StartTime(),
		ArrivalTime:       t.DestinationArrivalTime,
		DepartureTime:     t.DestinationDepartureTime,
		EndTime:           t.EndTime(),
		JointTour:         t.JointTourSequence,
		FullHalfTour1:     t.FullHalfTourSequence[0],
		FullHalfTour2:     t.FullHalfTourSequence[1],
		PartialHalfTour1:  t.PartialHalfTourSequence[0],
		PartialHalfTour2:  t.PartialHalfTourSequence[1],
	}
	if t.ParentTour != nil {
		rec.ParentSequence = t.ParentTour.Sequence
	}

	for _, h := range t.HalfTours {
		if h == nil {
			continue
		}
		if h.Direction == OriginToDestination {
			rec.OutboundTrips = len(h.Trips)
		} else {
			rec.ReturnTrips = len(h.Trips)
		}
		for i, trip := range h.TravelOrder() {
			r.Trips = append(r.Trips, TripRecord{
				HouseholdID:        hhID,
				Day:                day,
				PersonSequence:     rec.PersonSequence,
				TourSequence:       t.Sequence,
				HalfTour:           int(h.Direction),
				TripSequence:       i + 1,
				OriginParcel:       trip.OriginParcel,
				DestinationParcel:  trip.DestinationParcel,
				OriginPurpose:      trip.OriginPurpose.String(),
				DestinationPurpose: trip.DestinationPurpose.String(),
				Mode:               trip.Mode.String(),
				DepartureTime:      trip.DepartureTime,
				ArrivalTime:        trip.ArrivalTime,
				Cloned:             trip.IsCloned,
			})
		}
	}
	r.Tours = append(r.Tours, rec)
}
