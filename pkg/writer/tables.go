package writer

import "github.com/daysim/daysim/internal/model"

type columnKind int

const (
	kindInt columnKind = iota
	kindString
	kindBool
)

type column struct {
	name string
	kind columnKind
}

// table describes one exported table. Rows are projected into []any in
// column order, holding int, string or bool values.
type table struct {
	name    string
	columns []column
}

var (
	householdDaysTable = table{name: "household_days", columns: []column{
		{"household_id", kindInt},
		{"day", kindInt},
		{"valid", kindBool},
		{"abandoned", kindBool},
		{"attempted_simulations", kindInt},
		{"joint_tours", kindInt},
		{"full_half_tours", kindInt},
		{"partial_half_tours", kindInt},
	}}

	personDaysTable = table{name: "person_days", columns: []column{
		{"household_id", kindInt},
		{"day", kindInt},
		{"person_sequence", kindInt},
		{"pattern_type", kindString},
		{"tours", kindInt},
		{"work_tours", kindInt},
		{"school_tours", kindInt},
		{"busy_minutes", kindInt},
	}}

	toursTable = table{name: "tours", columns: []column{
		{"household_id", kindInt},
		{"day", kindInt},
		{"person_sequence", kindInt},
		{"tour_sequence", kindInt},
		{"parent_sequence", kindInt},
		{"purpose", kindString},
		{"mode", kindString},
		{"origin_parcel", kindInt},
		{"destination_parcel", kindInt},
		{"start_time", kindInt},
		{"arrival_time", kindInt},
		{"departure_time", kindInt},
		{"end_time", kindInt},
		{"joint_tour", kindInt},
		{"full_half_tour_1", kindInt},
		{"full_half_tour_2", kindInt},
		{"partial_half_tour_1", kindInt},
		{"partial_half_tour_2", kindInt},
		{"outbound_trips", kindInt},
		{"return_trips", kindInt},
	}}

	tripsTable = table{name: "trips", columns: []column{
		{"household_id", kindInt},
		{"day", kindInt},
		{"person_sequence", kindInt},
		{"tour_sequence", kindInt},
		{"half_tour", kindInt},
		{"trip_sequence", kindInt},
		{"origin_parcel", kindInt},
		{"destination_parcel", kindInt},
		{"origin_purpose", kindString},
		{"destination_purpose", kindString},
		{"mode", kindString},
		{"departure_time", kindInt},
		{"arrival_time", kindInt},
		{"cloned", kindBool},
	}}

	// tables is the export order.
	tables = []table{householdDaysTable, personDaysTable, toursTable, tripsTable}
)

// rows projects a household day into the rows of every table, keyed by
// table name.
func rows(d *model.HouseholdDay) map[string][][]any {
	rec := d.Export()
	out := make(map[string][][]any, len(tables))

	h := rec.HouseholdDay
	out[householdDaysTable.name] = [][]any{{
		h.HouseholdID, h.Day, h.Valid, h.Abandoned, h.AttemptedSimulations,
		h.JointTours, h.FullHalfTours, h.PartialHalfTours,
	}}
	for _, p := range rec.PersonDays {
		out[personDaysTable.name] = append(out[personDaysTable.name], []any{
			p.HouseholdID, p.Day, p.PersonSequence, p.PatternType,
			p.Tours, p.WorkTours, p.SchoolTours, p.BusyMinutes,
		})
	}
	for _, t := range rec.Tours {
		out[toursTable.name] = append(out[toursTable.name], []any{
			t.HouseholdID, t.Day, t.PersonSequence, t.TourSequence, t.ParentSequence,
			t.Purpose, t.Mode, t.OriginParcel, t.DestinationParcel,
			t.StartTime, t.ArrivalTime, t.DepartureTime, t.EndTime,
			t.JointTour, t.FullHalfTour1, t.FullHalfTour2, t.PartialHalfTour1, t.PartialHalfTour2,
			t.OutboundTrips, t.ReturnTrips,
		})
	}
	for _, t := range rec.Trips {
		out[tripsTable.name] = append(out[tripsTable.name], []any{
			t.HouseholdID, t.Day, t.PersonSequence, t.TourSequence, t.HalfTour, t.TripSequence,
			t.OriginParcel, t.DestinationParcel, t.OriginPurpose, t.DestinationPurpose,
			t.Mode, t.DepartureTime, t.ArrivalTime, t.Cloned,
		})
	}
	return out
}
