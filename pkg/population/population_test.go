package population

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

func TestSyntheticIsDeterministic(t *testing.T) {
	a, b := Synthetic(200, 7), Synthetic(200, 7)
	if !reflect.DeepEqual(a.Households, b.Households) {
		t.Fatal("same seed produced different populations")
	}
	if reflect.DeepEqual(a.Households, Synthetic(200, 8).Households) {
		t.Error("different seeds produced the same population")
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("synthetic population invalid: %v", err)
	}
	if len(a.Parcels) != gridSide*gridSide || a.Persons() < 200 {
		t.Errorf("parcels=%d persons=%d", len(a.Parcels), a.Persons())
	}
	for _, hh := range a.Households {
		for _, p := range hh.Persons {
			if p.IsWorker() && p.UsualWorkParcel == 0 {
				t.Fatalf("household %d person %d: worker without a work parcel", hh.ID, p.Sequence)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() *Population {
		return &Population{
			Parcels: model.Parcels{1: {ID: 1}, 2: {ID: 2}},
			Households: []*model.Household{{
				ID: 1, ResidenceParcel: 1,
				Persons: []*model.Person{{Sequence: 1, Age: 30, Type: model.PersonTypeFullTimeWorker, UsualWorkParcel: 2}},
			}},
		}
	}
	tests := []struct {
		name   string
		mutate func(p *Population)
		want   simerrors.Code
	}{
		{"ok", func(*Population) {}, ""},
		{"unknown residence", func(p *Population) { p.Households[0].ResidenceParcel = 9 }, simerrors.CodeUnknownParcel},
		{"unknown work", func(p *Population) { p.Households[0].Persons[0].UsualWorkParcel = 9 }, simerrors.CodeUnknownParcel},
		{"no persons", func(p *Population) { p.Households[0].Persons = nil }, simerrors.CodeInvalidFormat},
		{"bad person type", func(p *Population) { p.Households[0].Persons[0].Type = 12 }, simerrors.CodeInvalidFormat},
		{"duplicate", func(p *Population) { p.Households = append(p.Households, p.Households[0]) }, simerrors.CodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := p.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !simerrors.IsCode(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := config.InputConfig{
		Parcels: writeCSV(t, dir, "parcels.csv", "parcel_id,zone_id,x,y\n1,1,0,0\n2,1,1000,0\n3,2,0,1000\n"),
		Households: writeCSV(t, dir, "households.csv",
			"household_id,residence_parcel,vehicles\n20,1,2\n10,3,0\n"),
		Persons: writeCSV(t, dir, "persons.csv",
			"household_id,person_sequence,age,person_type,usual_work_parcel,usual_school_parcel\n"+
				"20,2,9,7,0,3\n20,1,41,1,2,0\n10,1,70,3,0,0\n"),
	}

	pop, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(pop.Households) != 2 || pop.Households[0].ID != 10 {
		t.Fatalf("households = %+v", pop.Households)
	}
	hh := pop.Households[1]
	if hh.Vehicles != 2 || hh.Income != 0 || len(hh.Persons) != 2 {
		t.Errorf("household 20 = %+v", hh)
	}
	if hh.Persons[0].Sequence != 1 || hh.Persons[0].UsualWorkParcel != 2 || hh.Persons[1].UsualSchoolParcel != 3 {
		t.Errorf("persons = %+v %+v", hh.Persons[0], hh.Persons[1])
	}
	if pop.Parcels[2].X != 1000 || pop.Parcels[3].ZoneID != 2 {
		t.Errorf("parcels = %v", pop.Parcels)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	dir := t.TempDir()
	cfg := config.InputConfig{
		Parcels:    writeCSV(t, dir, "parcels.csv", "parcel_id,x,y\n1,0,0\n"),
		Households: writeCSV(t, dir, "households.csv", "household_id,vehicles\n1,1\n"),
		Persons:    writeCSV(t, dir, "persons.csv", "household_id,person_sequence,age,person_type\n1,1,30,1\n"),
	}
	_, err := Load(context.Background(), cfg)
	if !simerrors.IsCode(err, simerrors.CodeMissingColumn) {
		t.Fatalf("err = %v, want missing column", err)
	}
	if col, _ := simerrors.ContextOf(err, "column"); col != "residence_parcel" {
		t.Errorf("column = %v", col)
	}
}

func TestLoadSynthetic(t *testing.T) {
	pop, err := Load(context.Background(), config.InputConfig{SyntheticHouseholds: 15, SyntheticSeed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(pop.Households) != 15 {
		t.Errorf("households = %d", len(pop.Households))
	}
}
