// Package timewindow tracks minute-level availability over one modeled day.
//
// Minutes are numbered 1..MinutesInDay. A Window stores the busy minutes in a
// roaring bitmap, so unions of participants' windows and range counts stay
// cheap even when many tours carve up the same day.
package timewindow

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

const (
	// FirstMinute is the first minute of the modeled day.
	FirstMinute = 1
	// MinutesInDay is the last minute of the modeled day.
	MinutesInDay = 1440
	// NoMinute is returned when no minute satisfies a request.
	NoMinute = -1
)

// Uniform is the random source used to draw minutes.
type Uniform interface {
	Uniform01() float64
}

// Span is an inclusive range of minutes.
type Span struct {
	Start int
	End   int
}

// Length returns the number of minutes in the span.
func (s Span) Length() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// String implements fmt.Stringer.
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d]", s.Start, s.End)
}

// Window is the availability record of a person, tour or joint group.
// A Window is not safe for concurrent use; each household is owned by a
// single worker.
type Window struct {
	busy *roaring.Bitmap
}

// New creates a fully available window.
func New() *Window {
	return &Window{busy: roaring.New()}
}

// SetBusyMinutes marks the half-open range [start,end) busy.
// Ranges are clamped to the day; empty ranges are ignored.
func (w *Window) SetBusyMinutes(start, end int) {
	if start < FirstMinute {
		start = FirstMinute
	}
	if end > MinutesInDay+1 {
		end = MinutesInDay + 1
	}
	if end <= start {
		return
	}
	w.busy.AddRange(uint64(start), uint64(end))
}

// IsBusy reports whether a minute is busy. Minutes outside the day are
// always busy.
func (w *Window) IsBusy(minute int) bool {
	if minute < FirstMinute || minute > MinutesInDay {
		return true
	}
	return w.busy.Contains(uint32(minute))
}

// BusyMinutes returns the number of busy minutes in the day.
func (w *Window) BusyMinutes() int {
	return int(w.busy.GetCardinality())
}

// TotalAvailableMinutes returns the number of free minutes in the inclusive
// range [start,end].
func (w *Window) TotalAvailableMinutes(start, end int) int {
	start, end = clamp(start), clamp(end)
	if end < start {
		return 0
	}
	return (end - start + 1) - w.busyBetween(start, end)
}

// EntireSpanIsAvailable reports whether every minute of [a,b] is free.
func (w *Window) EntireSpanIsAvailable(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	if a < FirstMinute || b > MinutesInDay {
		return false
	}
	return w.busyBetween(a, b) == 0
}

// GetAvailableMinute draws a uniformly random free minute in
// [earliest,latest]. It returns NoMinute when none is free.
func (w *Window) GetAvailableMinute(rng Uniform, earliest, latest int) int {
	earliest, latest = clamp(earliest), clamp(latest)
	available := w.TotalAvailableMinutes(earliest, latest)
	if available == 0 {
		return NoMinute
	}

	pick := int(rng.Uniform01() * float64(available))
	if pick >= available {
		pick = available - 1
	}

	for m := earliest; m <= latest; m++ {
		if w.busy.Contains(uint32(m)) {
			continue
		}
		if pick == 0 {
			return m
		}
		pick--
	}
	return NoMinute
}

// AvailableSpan returns the maximal free span containing minute.
func (w *Window) AvailableSpan(minute int) (Span, bool) {
	if w.IsBusy(minute) {
		return Span{}, false
	}
	start, end := minute, minute
	for start > FirstMinute && !w.busy.Contains(uint32(start-1)) {
		start--
	}
	for end < MinutesInDay && !w.busy.Contains(uint32(end+1)) {
		end++
	}
	return Span{Start: start, End: end}, true
}

// AvailableSpans lists the free spans of at least minLength minutes in
// chronological order.
func (w *Window) AvailableSpans(minLength int) []Span {
	var spans []Span
	start := 0
	for m := FirstMinute; m <= MinutesInDay+1; m++ {
		free := m <= MinutesInDay && !w.busy.Contains(uint32(m))
		switch {
		case free && start == 0:
			start = m
		case !free && start != 0:
			s := Span{Start: start, End: m - 1}
			if s.Length() >= minLength {
				spans = append(spans, s)
			}
			start = 0
		}
	}
	return spans
}

// IncorporateAnotherTimeWindow adds the busy minutes of other to w.
func (w *Window) IncorporateAnotherTimeWindow(other *Window) {
	if other == nil {
		return
	}
	w.busy.Or(other.busy)
}

// Reset makes the whole day available again.
func (w *Window) Reset() {
	w.busy.Clear()
}

// Clone returns an independent copy of the window.
func (w *Window) Clone() *Window {
	return &Window{busy: w.busy.Clone()}
}

// String implements fmt.Stringer.
func (w *Window) String() string {
	return fmt.Sprintf("TimeWindow{busy=%d, available=%d}", w.BusyMinutes(), MinutesInDay-w.BusyMinutes())
}

// busyBetween counts busy minutes in [start,end]; both bounds lie in the day.
func (w *Window) busyBetween(start, end int) int {
	return int(w.busy.Rank(uint32(end)) - w.busy.Rank(uint32(start-1)))
}

func clamp(minute int) int {
	if minute < FirstMinute {
		return FirstMinute
	}
	if minute > MinutesInDay {
		return MinutesInDay
	}
	return minute
}
