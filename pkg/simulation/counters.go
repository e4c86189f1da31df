package simulation

import (
	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/internal/random"
	"github.com/daysim/daysim/pkg/choice"
)

// Counters are the per-worker run totals.
type Counters struct {
	Households       int64
	Days             int64
	ValidDays        int64
	AbandonedDays    int64
	InvalidAttempts  int64
	Faults           int64
	Tours            int64
	Subtours         int64
	Trips            int64
	JointTours       int64
	FullHalfTours    int64
	PartialHalfTours int64

	Models choice.Counters
}

// Merge adds other into c.
func (c *Counters) Merge(other *Counters) {
	c.Households += other.Households
	c.Days += other.Days
	c.ValidDays += other.ValidDays
	c.AbandonedDays += other.AbandonedDays
	c.InvalidAttempts += other.InvalidAttempts
	c.Faults += other.Faults
	c.Tours += other.Tours
	c.Subtours += other.Subtours
	c.Trips += other.Trips
	c.JointTours += other.JointTours
	c.FullHalfTours += other.FullHalfTours
	c.PartialHalfTours += other.PartialHalfTours
	c.Models.Merge(&other.Models)
}

// WorkerState is owned by one worker goroutine and passed explicitly into
// every household it simulates.
type WorkerState struct {
	ID       int
	Counters Counters

	stream *random.Stream
}

// NewWorkerState creates the state for worker id.
func NewWorkerState(id int) *WorkerState {
	return &WorkerState{ID: id, stream: random.New(0)}
}

// addDay adds the entities of a finished household day.
func (c *Counters) addDay(d *model.HouseholdDay) {
	c.Days++
	if d.IsValid {
		c.ValidDays++
	}
	if d.Abandoned {
		c.AbandonedDays++
	}
	c.JointTours += int64(len(d.JointTours))
	c.FullHalfTours += int64(len(d.FullHalfTours))
	c.PartialHalfTours += int64(len(d.PartialHalfTours))
	for _, pd := range d.PersonDays {
		for _, t := range pd.Tours {
			c.Tours++
			c.Trips += int64(tripCount(t))
			for _, st := range t.Subtours {
				c.Subtours++
				c.Trips += int64(tripCount(st))
			}
		}
	}
}

func tripCount(t *model.Tour) int {
	n := 0
	for _, h := range t.HalfTours {
		if h != nil {
			n += len(h.Trips)
		}
	}
	return n
}
