// Package guardrails checks stored and imported plans against the rules the
// generator guarantees for freshly built plans.
package guardrails

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agentplan/internal/planner"
)

// Violation is a single broken rule on a plan.
type Violation struct {
	PlanID  string `json:"plan_id"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.PlanID, v.Field, v.Message)
}

// Violations is the list of problems found on one or more plans.
type Violations []Violation

// Err returns nil when there are no violations, otherwise a single error
// listing all of them.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		errs = append(errs, errors.New(v.String()))
	}
	return errors.Join(errs...)
}

// CheckPlan returns every rule p breaks.
func CheckPlan(p planner.AgentPlan) Violations {
	var out Violations
	add := func(field, format string, args ...any) {
		out = append(out, Violation{PlanID: p.ID, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.ID) == "" {
		add("id", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		add("name", "must not be empty")
	}

	if len(p.Goals) != 1 {
		add("goals", "expected exactly one goal, got %d", len(p.Goals))
	}
	for i, g := range p.Goals {
		if parsed, ok := planner.ParseGoal(g); !ok || parsed != planner.Goal(g) {
			add(fmt.Sprintf("goals[%d]", i), "unknown goal %q", g)
		}
	}

	if len(p.Channels) == 0 {
		add("channels", "plan has no channels")
	}
	channelIDs := make(map[string]int)
	channels := make(map[planner.ChannelType]int)
	for i, ch := range p.Channels {
		path := fmt.Sprintf("channels[%d]", i)

		if ch.ID == "" {
			add(path+".id", "must not be empty")
		} else if first, dup := channelIDs[ch.ID]; dup {
			add(path+".id", "duplicates channels[%d].id %q", first, ch.ID)
		} else {
			channelIDs[ch.ID] = i
		}

		if parsed, ok := planner.ParseChannel(string(ch.Channel)); !ok || parsed != ch.Channel {
			add(path+".channel", "unknown channel %q", ch.Channel)
		} else if first, dup := channels[ch.Channel]; dup {
			add(path+".channel", "duplicates channels[%d]", first)
		} else {
			channels[ch.Channel] = i
		}

		if ch.CadencePerWeek < planner.MinCadence || ch.CadencePerWeek > planner.MaxCadence {
			add(path+".cadencePerWeek", "%d is outside %d-%d", ch.CadencePerWeek, planner.MinCadence, planner.MaxCadence)
		}
		if _, ok := planner.ParseAutomationLevel(string(ch.AutomationLevel)); !ok {
			add(path+".automationLevel", "unknown automation level %q", ch.AutomationLevel)
		}

		seen := make(map[string]struct{}, len(ch.ContentPillars))
		for _, pillar := range ch.ContentPillars {
			if _, dup := seen[pillar]; dup {
				add(path+".contentPillars", "duplicate pillar %q", pillar)
				continue
			}
			seen[pillar] = struct{}{}
		}
	}

	created, createdErr := planner.ParseTimestamp(p.CreatedAt)
	if createdErr != nil {
		add("createdAt", "not an ISO-8601 timestamp: %q", p.CreatedAt)
	}
	updated, updatedErr := planner.ParseTimestamp(p.UpdatedAt)
	if updatedErr != nil {
		add("updatedAt", "not an ISO-8601 timestamp: %q", p.UpdatedAt)
	}
	if createdErr == nil && updatedErr == nil && updated.Before(created) {
		add("updatedAt", "is before createdAt")
	}

	return out
}

// CheckPlans checks every plan and concatenates the results.
func CheckPlans(plans []planner.AgentPlan) Violations {
	var out Violations
	for _, p := range plans {
		out = append(out, CheckPlan(p)...)
	}
	return out
}

// WriteReport writes violations as an indented JSON document to path.
func WriteReport(path string, vs Violations) error {
	if vs == nil {
		vs = Violations{}
	}
	report := map[string]any{
		"violation_count": len(vs),
		"violations":      vs,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
