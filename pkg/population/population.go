// Package population loads the households, persons and parcels a run
// simulates, either from CSV files or from a synthetic generator.
package population

import (
	"context"
	"fmt"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Population is the input of a run. Households are in roster order.
type Population struct {
	Households []*model.Household
	Parcels    model.Parcels
}

// Persons returns the number of persons.
func (p *Population) Persons() int {
	n := 0
	for _, hh := range p.Households {
		n += hh.Size()
	}
	return n
}

// Load reads the population named by cfg. Without input files it generates
// a synthetic one.
func Load(ctx context.Context, cfg config.InputConfig) (*Population, error) {
	if cfg.Households == "" && cfg.Persons == "" && cfg.Parcels == "" {
		return Synthetic(cfg.SyntheticHouseholds, cfg.SyntheticSeed), nil
	}
	if cfg.Households == "" || cfg.Persons == "" || cfg.Parcels == "" {
		return nil, simerrors.New(simerrors.CodeConfigInvalid, "input needs households, persons and parcels files")
	}

	r, err := NewDuckDBReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	parcels, err := r.ReadParcels(ctx, cfg.Parcels)
	if err != nil {
		return nil, err
	}
	households, err := r.ReadHouseholds(ctx, cfg.Households, cfg.Persons)
	if err != nil {
		return nil, err
	}
	pop := &Population{Households: households, Parcels: parcels}
	if err := pop.Validate(); err != nil {
		return nil, err
	}
	return pop, nil
}

// Validate checks that every referenced parcel exists and every household
// has members with valid person types.
func (p *Population) Validate() error {
	check := func(hh *model.Household, what string, parcel int) error {
		if parcel == 0 {
			return nil
		}
		if _, ok := p.Parcels[parcel]; !ok {
			return simerrors.Newf(simerrors.CodeUnknownParcel, "%s parcel %d not found", what, parcel).
				WithContext(simerrors.KeyHousehold, hh.ID)
		}
		return nil
	}

	seen := make(map[int]bool, len(p.Households))
	for _, hh := range p.Households {
		if seen[hh.ID] {
			return simerrors.Newf(simerrors.CodeInvalidFormat, "duplicate household %d", hh.ID)
		}
		seen[hh.ID] = true
		if hh.ResidenceParcel == 0 {
			return simerrors.New(simerrors.CodeUnknownParcel, "household has no residence parcel").
				WithContext(simerrors.KeyHousehold, hh.ID)
		}
		if err := check(hh, "residence", hh.ResidenceParcel); err != nil {
			return err
		}
		if len(hh.Persons) == 0 {
			return simerrors.New(simerrors.CodeInvalidFormat, "household has no persons").
				WithContext(simerrors.KeyHousehold, hh.ID)
		}
		for _, person := range hh.Persons {
			if person.Type < model.PersonTypeFullTimeWorker || person.Type > model.PersonTypeChildUnder5 {
				return simerrors.New(simerrors.CodeInvalidFormat, fmt.Sprintf("person type %d out of range", int(person.Type))).
					WithContext(simerrors.KeyHousehold, hh.ID).
					WithContext(simerrors.KeyPerson, person.Sequence)
			}
			if err := check(hh, "work", person.UsualWorkParcel); err != nil {
				return err
			}
			if err := check(hh, "school", person.UsualSchoolParcel); err != nil {
				return err
			}
		}
	}
	return nil
}
