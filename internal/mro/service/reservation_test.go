package service

import (
	"errors"
	"testing"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
)

func TestAggregateRequirementsMergesAndSorts(t *testing.T) {
	reqs, err := aggregateRequirements([]entity.MaterialRequirement{
		{MaterialID: "b", Quantity: 1},
		{MaterialID: "a", Quantity: 2},
		{MaterialID: " a ", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 merged requirements, got %d", len(reqs))
	}
	if reqs[0].MaterialID != "a" || reqs[0].Quantity != 5 {
		t.Fatalf("expected a=5 first, got %+v", reqs[0])
	}
	if reqs[1].MaterialID != "b" || reqs[1].Quantity != 1 {
		t.Fatalf("expected b=1 second, got %+v", reqs[1])
	}
}

func TestAggregateRequirementsRejectsBadInput(t *testing.T) {
	cases := map[string][]entity.MaterialRequirement{
		"zero quantity":     {{MaterialID: "a", Quantity: 0}},
		"negative quantity": {{MaterialID: "a", Quantity: -1}},
		"missing material":  {{MaterialID: "  ", Quantity: 1}},
	}
	for name, reqs := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := aggregateRequirements(reqs); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEvaluateSufficiency(t *testing.T) {
	materials := map[string]*entity.RawMaterial{
		"a": {ID: "a", MaterialName: "Steel", CurrentQuantity: 4},
		"b": {ID: "b", MaterialName: "Bolt", CurrentQuantity: 10},
	}
	shortages := evaluateSufficiency([]entity.MaterialRequirement{
		{MaterialID: "a", Quantity: 5},
		{MaterialID: "b", Quantity: 10},
	}, materials)

	if len(shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %d", len(shortages))
	}
	s := shortages[0]
	if s.MaterialID != "a" || s.Required != 5 || s.Available != 4 {
		t.Fatalf("unexpected shortage %+v", s)
	}
	if got := describeShortages(shortages); got != "Steel needs 5, has 4" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestUnionIDs(t *testing.T) {
	got := unionIDs([]string{"c", "a"}, []string{"b", "a"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
