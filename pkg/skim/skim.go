// Package skim provides impedance lookups between parcels.
//
// The simulator only needs the lookup contract; StraightLine is a network-free
// implementation based on planar parcel coordinates, used when no skim
// matrices are supplied.
package skim

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/daysim/daysim/internal/model"
)

// Measure selects the impedance variable to return.
type Measure int

const (
	MeasureDistance Measure = iota
	MeasureTime
	MeasureCost
	MeasureGeneralizedTime
)

// Query describes one impedance lookup.
type Query struct {
	Measure     Measure
	Mode        model.Mode
	PathType    int
	ValueOfTime float64
	Minute      int
	Origin      model.Parcel
	Destination model.Parcel
	// Distance in meters when already known; negative to compute it.
	Distance float64
}

// Impedance is a pure function over static network data. Implementations
// are shared read-only across workers.
type Impedance interface {
	GetValue(q Query) float64
}

// Distance returns the straight-line distance between two parcels in meters.
func Distance(a, b model.Parcel) float64 {
	return r2.Point{X: a.X, Y: a.Y}.Sub(r2.Point{X: b.X, Y: b.Y}).Norm()
}

// StraightLine derives impedance from straight-line distance and per-mode
// speeds.
type StraightLine struct {
	// Speeds in km/h by mode.
	Speeds map[model.Mode]float64
	// Circuity converts straight-line to network distance.
	Circuity float64
	// CostPerKm is the out-of-pocket cost for auto modes.
	CostPerKm float64
	// PeakFactor multiplies auto travel times in the peak periods.
	PeakFactor float64
}

// DefaultStraightLine returns speeds typical of an urban region.
func DefaultStraightLine() *StraightLine {
	return &StraightLine{
		Speeds: map[model.Mode]float64{
			model.ModeWalk:         4.8,
			model.ModeBike:         16,
			model.ModeSOV:          40,
			model.ModeHOVDriver:    40,
			model.ModeHOVPassenger: 40,
			model.ModeTransit:      22,
			model.ModeSchoolBus:    25,
		},
		Circuity:   1.3,
		CostPerKm:  0.12,
		PeakFactor: 1.25,
	}
}

// GetValue implements Impedance.
func (s *StraightLine) GetValue(q Query) float64 {
	dist := q.Distance
	if dist < 0 {
		dist = Distance(q.Origin, q.Destination)
	}
	km := dist * s.Circuity / 1000

	switch q.Measure {
	case MeasureDistance:
		return km
	case MeasureTime:
		return s.minutes(q.Mode, q.Minute, km)
	case MeasureCost:
		return s.cost(q.Mode, km)
	case MeasureGeneralizedTime:
		t := s.minutes(q.Mode, q.Minute, km)
		if q.ValueOfTime > 0 {
			t += s.cost(q.Mode, km) / q.ValueOfTime * 60
		}
		return t
	default:
		return math.NaN()
	}
}

// TravelMinutes returns the whole-minute travel time between two parcels,
// at least one minute.
func TravelMinutes(imp Impedance, mode model.Mode, minute int, from, to model.Parcel) int {
	t := imp.GetValue(Query{
		Measure:     MeasureTime,
		Mode:        mode,
		Minute:      minute,
		Origin:      from,
		Destination: to,
		Distance:    -1,
	})
	if math.IsNaN(t) || t < 1 {
		return 1
	}
	return int(math.Ceil(t))
}

func (s *StraightLine) minutes(mode model.Mode, minute int, km float64) float64 {
	speed, ok := s.Speeds[mode]
	if !ok || speed <= 0 {
		return math.Inf(1)
	}
	t := km / speed * 60
	if isAuto(mode) && isPeak(minute) {
		t *= s.PeakFactor
	}
	return t
}

func (s *StraightLine) cost(mode model.Mode, km float64) float64 {
	switch mode {
	case model.ModeSOV:
		return km * s.CostPerKm
	case model.ModeHOVDriver, model.ModeHOVPassenger:
		return km * s.CostPerKm / 2
	case model.ModeTransit:
		return 2.5
	default:
		return 0
	}
}

func isAuto(mode model.Mode) bool {
	return mode == model.ModeSOV || mode == model.ModeHOVDriver || mode == model.ModeHOVPassenger
}

func isPeak(minute int) bool {
	return (minute >= 420 && minute < 540) || (minute >= 960 && minute < 1080)
}
