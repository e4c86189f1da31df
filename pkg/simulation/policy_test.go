package simulation

import (
	"testing"

	"github.com/daysim/daysim/internal/model"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

func sixPersons() *model.Household {
	return &model.Household{
		ID: 3,
		Persons: []*model.Person{
			{Sequence: 1, Age: 70, Type: model.PersonTypeRetired},
			{Sequence: 2, Age: 6, Type: model.PersonTypeChildAge5Through15},
			{Sequence: 3, Age: 45, Type: model.PersonTypePartTimeWorker},
			{Sequence: 4, Age: 44, Type: model.PersonTypeFullTimeWorker},
			{Sequence: 5, Age: 12, Type: model.PersonTypeChildAge5Through15},
			{Sequence: 6, Age: 3, Type: model.PersonTypeChildUnder5},
		},
	}
}

func TestPolicyRank(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []int
	}{
		{"default ranks workers first", DefaultPolicy(), []int{4, 3, 5, 2, 6}},
		{"eu ranks children first", EuropeanPolicy(), []int{5, 2, 6, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := model.NewHouseholdDay(sixPersons(), 1)
			ranked := tt.policy.Rank(d.PersonDays)
			if len(ranked) != len(tt.want) {
				t.Fatalf("ranked %d persons, want %d", len(ranked), len(tt.want))
			}
			for i, pd := range ranked {
				if pd.Person.Sequence != tt.want[i] {
					t.Errorf("rank %d = person %d, want %d", i, pd.Person.Sequence, tt.want[i])
				}
			}
			if d.PersonDays[0].Person.Sequence != 1 {
				t.Error("Rank must not reorder the input")
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		region     string
		wantAge    int
		wantErr    bool
		wantPolicy string
	}{
		{"", 16, false, "default"},
		{"default", 16, false, "default"},
		{"eu", 18, false, "eu"},
		{"mars", 0, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			p, err := PolicyFor(tt.region)
			if tt.wantErr {
				if !simerrors.IsCode(err, simerrors.CodeConfigInvalid) {
					t.Errorf("err = %v, want config error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.DrivingAge != tt.wantAge || p.Name != tt.wantPolicy {
				t.Errorf("policy = %s/%d", p.Name, p.DrivingAge)
			}
		})
	}
}

func TestDrivingAgeGatesChauffeurs(t *testing.T) {
	seventeen := &model.Person{Age: 17}
	if !DefaultPolicy().IsDrivingAge(seventeen) {
		t.Error("17 should drive under the default policy")
	}
	if EuropeanPolicy().IsDrivingAge(seventeen) {
		t.Error("17 should not drive under the eu policy")
	}
}
