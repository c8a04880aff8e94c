package planner

import (
	"strings"
	"testing"
)

func TestDiffIdenticalPlans(t *testing.T) {
	plan := testGenerator().Generate(baseInput())
	diff, err := Diff(plan, plan, "a", "b")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff != "" {
		t.Fatalf("expected empty diff, got:\n%s", diff)
	}
}

func TestDiffChangedPlan(t *testing.T) {
	plan := testGenerator().Generate(baseInput())
	changed := plan
	changed.Name = "Renamed plan"

	diff, err := Diff(plan, changed, "library/"+plan.ID, "import/"+plan.ID)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, want := range []string{
		"--- library/" + plan.ID,
		"+++ import/" + plan.ID,
		`-  "name": "Test plan",`,
		`+  "name": "Renamed plan",`,
	} {
		if !strings.Contains(diff, want) {
			t.Fatalf("expected diff to contain %q\n%s", want, diff)
		}
	}
}
