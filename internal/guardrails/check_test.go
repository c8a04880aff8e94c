package guardrails

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agentplan/internal/planner"
)

func generatedPlan(t *testing.T) planner.AgentPlan {
	t.Helper()
	gen := planner.NewGenerator()
	gen.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return gen.Generate(planner.Input{
		Name:           "Guarded",
		Audience:       "Ops leads",
		BrandVoice:     "Direct",
		PrimaryGoal:    planner.GoalRetention,
		DurationWeeks:  8,
		ContentPillars: []string{"Playbooks"},
		Metrics:        []string{"Churn"},
		Channels: []planner.ChannelInput{
			{Channel: planner.ChannelLinkedIn, Cadence: 40, AutomationPreference: planner.AutomationManual},
			{Channel: planner.ChannelYouTube, Cadence: 0, AutomationPreference: planner.AutomationAssisted},
		},
	})
}

func fields(vs Violations) map[string]bool {
	out := make(map[string]bool, len(vs))
	for _, v := range vs {
		out[v.Field] = true
	}
	return out
}

func TestGeneratedPlanHasNoViolations(t *testing.T) {
	plan := generatedPlan(t)
	if vs := CheckPlan(plan); len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
	if err := CheckPlan(plan).Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestCheckPlanFindsBrokenRules(t *testing.T) {
	plan := generatedPlan(t)
	plan.Goals = []string{"awareness", "virality"}
	plan.Channels[0].CadencePerWeek = 20
	plan.Channels[0].ContentPillars = append(plan.Channels[0].ContentPillars, "Playbooks")
	plan.Channels[1].Channel = "myspace"
	plan.Channels[1].AutomationLevel = "yolo"
	plan.Channels[1].ID = plan.Channels[0].ID
	plan.UpdatedAt = "2020-01-01T00:00:00.000Z"

	got := fields(CheckPlan(plan))
	for _, want := range []string{
		"goals",
		"goals[1]",
		"channels[0].cadencePerWeek",
		"channels[0].contentPillars",
		"channels[1].channel",
		"channels[1].automationLevel",
		"channels[1].id",
		"updatedAt",
	} {
		if !got[want] {
			t.Fatalf("expected violation on %s, got %v", want, got)
		}
	}
}

func TestCheckPlanRejectsBadTimestampsAndEmptyChannels(t *testing.T) {
	plan := generatedPlan(t)
	plan.Channels = []planner.ChannelPlan{}
	plan.CreatedAt = "yesterday"

	got := fields(CheckPlan(plan))
	if !got["channels"] || !got["createdAt"] {
		t.Fatalf("expected channels and createdAt violations, got %v", got)
	}
}

func TestViolationsErrListsAll(t *testing.T) {
	vs := Violations{
		{PlanID: "p1", Field: "name", Message: "must not be empty"},
		{PlanID: "p2", Field: "goals", Message: "expected exactly one goal, got 0"},
	}
	err := vs.Err()
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "p1: name: must not be empty") || !strings.Contains(msg, "p2: goals") {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestCheckPlans(t *testing.T) {
	good := generatedPlan(t)
	bad := generatedPlan(t)
	bad.Name = ""
	vs := CheckPlans([]planner.AgentPlan{good, bad})
	if len(vs) != 1 || vs[0].PlanID != bad.ID {
		t.Fatalf("expected one violation on %s, got %v", bad.ID, vs)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "check.json")
	vs := Violations{{PlanID: "p1", Field: "name", Message: "must not be empty"}}
	if err := WriteReport(path, vs); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		Count      int         `json:"violation_count"`
		Violations []Violation `json:"violations"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Count != 1 || report.Violations[0].Field != "name" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCheckPlanRequiresCanonicalGoal(t *testing.T) {
	for _, goal := range []string{"Awareness", "thought-leadership", " retention"} {
		plan := generatedPlan(t)
		plan.Goals = []string{goal}
		if vs := CheckPlan(plan); !fields(vs)["goals[0]"] {
			t.Fatalf("expected goal %q to be rejected, got %v", goal, vs)
		}
	}

	plan := generatedPlan(t)
	plan.Goals = []string{string(planner.GoalThoughtLeadership)}
	if vs := CheckPlan(plan); len(vs) != 0 {
		t.Fatalf("expected canonical goal to pass, got %v", vs)
	}
}
