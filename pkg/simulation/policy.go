package simulation

import (
	"sort"

	"github.com/daysim/daysim/internal/model"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Policy holds the small set of rules that differ between regions.
// Entities stay the same everywhere; a region only swaps these functions.
type Policy struct {
	Name string

	// DrivingAge is the minimum age of a chauffeur.
	DrivingAge int

	// MaxRankedParticipants bounds the persons considered for joint half
	// tours.
	MaxRankedParticipants int

	// ParticipationPriority orders persons for joint half tour availability;
	// lower values rank first.
	ParticipationPriority func(p *model.Person) int
}

// DefaultPolicy ranks workers, then students, then everyone else, and lets
// 16 year olds drive.
func DefaultPolicy() Policy {
	return Policy{
		Name:                  "default",
		DrivingAge:            model.DrivingAge,
		MaxRankedParticipants: 5,
		ParticipationPriority: func(p *model.Person) int {
			switch p.Type {
			case model.PersonTypeFullTimeWorker:
				return 1
			case model.PersonTypePartTimeWorker:
				return 2
			case model.PersonTypeUniversityStudent, model.PersonTypeDrivingAgeStudent:
				return 3
			case model.PersonTypeChildAge5Through15:
				return 4
			case model.PersonTypeChildUnder5:
				return 5
			default:
				return 6
			}
		},
	}
}

// EuropeanPolicy puts children first, since school escort dominates joint
// half tours there, and requires drivers to be 18.
func EuropeanPolicy() Policy {
	p := DefaultPolicy()
	p.Name = "eu"
	p.DrivingAge = 18
	p.ParticipationPriority = func(p *model.Person) int {
		switch p.Type {
		case model.PersonTypeChildAge5Through15:
			return 1
		case model.PersonTypeChildUnder5:
			return 2
		case model.PersonTypeFullTimeWorker, model.PersonTypePartTimeWorker:
			return 3
		default:
			return 4
		}
	}
	return p
}

// PolicyFor returns the policy registered for a region name.
func PolicyFor(region string) (Policy, error) {
	switch region {
	case "", "default":
		return DefaultPolicy(), nil
	case "eu":
		return EuropeanPolicy(), nil
	default:
		return Policy{}, simerrors.New(simerrors.CodeConfigInvalid, "unknown region policy").
			WithContext("region", region)
	}
}

// IsDrivingAge reports whether the person may chauffeur.
func (p Policy) IsDrivingAge(person *model.Person) bool {
	return person.Age >= p.DrivingAge
}

// Rank orders person days by participation priority, then age descending,
// then sequence, and keeps at most MaxRankedParticipants.
func (p Policy) Rank(pds []*model.PersonDay) []*model.PersonDay {
	ranked := make([]*model.PersonDay, len(pds))
	copy(ranked, pds)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Person, ranked[j].Person
		pa, pb := p.ParticipationPriority(a), p.ParticipationPriority(b)
		if pa != pb {
			return pa < pb
		}
		if a.Age != b.Age {
			return a.Age > b.Age
		}
		return a.Sequence < b.Sequence
	})
	if p.MaxRankedParticipants > 0 && len(ranked) > p.MaxRankedParticipants {
		ranked = ranked[:p.MaxRankedParticipants]
	}
	return ranked
}
