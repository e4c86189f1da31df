package model

import (
	"github.com/daysim/daysim/pkg/timewindow"
)

// MaxParticipants is the largest group a joint record can hold.
const MaxParticipants = 8

// Participant references one person's tour inside a joint record.
// TourSequence is 0 until the tour is linked.
type Participant struct {
	PersonSequence int
	TourSequence   int
}

// JointTour is a tour made together by two or more household members.
type JointTour struct {
	Sequence     int
	Purpose      Purpose
	Participants []Participant
	// Window is the union of the participants' busy minutes.
	Window *timewindow.Window
}

// AddParticipant appends a participant and merges their window.
func (j *JointTour) AddParticipant(pd *PersonDay) bool {
	if len(j.Participants) >= MaxParticipants {
		return false
	}
	j.Participants = append(j.Participants, Participant{PersonSequence: pd.Person.Sequence})
	j.Window.IncorporateAnotherTimeWindow(pd.Window)
	return true
}

// FullHalfTour is a half tour made entirely together.
type FullHalfTour struct {
	Sequence     int
	Subtype      JointSubtype
	Participants []Participant
	Window       *timewindow.Window
}

// AddParticipant appends a participant and merges their window.
func (f *FullHalfTour) AddParticipant(pd *PersonDay) bool {
	if len(f.Participants) >= MaxParticipants {
		return false
	}
	f.Participants = append(f.Participants, Participant{PersonSequence: pd.Person.Sequence})
	f.Window.IncorporateAnotherTimeWindow(pd.Window)
	return true
}

// PartialHalfTour is a half tour where a chauffeur drops off or picks up
// the other participants. Participants are ordered chauffeur first, then by
// increasing distance from the chauffeur's destination.
type PartialHalfTour struct {
	Sequence     int
	Subtype      JointSubtype
	Participants []Participant
	// Chauffeur is the driving person's sequence.
	Chauffeur int
}

// AddParticipant appends a participant.
func (p *PartialHalfTour) AddParticipant(pd *PersonDay) bool {
	if len(p.Participants) >= MaxParticipants {
		return false
	}
	p.Participants = append(p.Participants, Participant{PersonSequence: pd.Person.Sequence})
	return true
}

// Passengers returns every participant except the chauffeur, in order.
func (p *PartialHalfTour) Passengers() []Participant {
	var out []Participant
	for _, part := range p.Participants {
		if part.PersonSequence != p.Chauffeur {
			out = append(out, part)
		}
	}
	return out
}
