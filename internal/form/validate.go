package form

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"agentplan/internal/planner"
)

const (
	minDurationWeeks = 1
	maxDurationWeeks = 52
)

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	Source  string `json:"source,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Validate checks f and converts it into generator input. Cadence is left
// unbounded here; the generator clamps it.
func Validate(f Form, source string) (planner.Input, error) {
	var errs ValidationErrors
	add := func(field, message string) {
		errs = append(errs, ValidationError{Source: source, Field: field, Message: message})
	}

	if runeLen(f.Name) < 2 {
		add("name", "Plan name is required")
	}
	if runeLen(f.Audience) < 5 {
		add("audience", "Audience description is required")
	}
	if runeLen(f.BrandVoice) < 3 {
		add("brandVoice", "Brand voice is required")
	}

	goal, ok := planner.ParseGoal(f.PrimaryGoal)
	if !ok {
		add("primaryGoal", fmt.Sprintf("unknown goal %q", f.PrimaryGoal))
	}

	if f.DurationWeeks < minDurationWeeks || f.DurationWeeks > maxDurationWeeks {
		add("durationWeeks", fmt.Sprintf("must be between %d and %d", minDurationWeeks, maxDurationWeeks))
	}

	pillars := f.ContentPillars.Items()
	if runeLen(f.ContentPillars.Raw) < 3 || len(pillars) == 0 {
		add("contentPillars", "Add at least one content pillar")
	}
	metrics := f.Metrics.Items()
	if runeLen(f.Metrics.Raw) < 3 || len(metrics) == 0 {
		add("metrics", "Add at least one metric")
	}

	if len(f.Channels) == 0 {
		add("channels", "Select at least one channel")
	}
	channels := make([]planner.ChannelInput, 0, len(f.Channels))
	seen := make(map[planner.ChannelType]int)
	for idx, entry := range f.Channels {
		path := fmt.Sprintf("channels[%d]", idx)

		channel, known := planner.ParseChannel(entry.Channel)
		if !known {
			add(path+".channel", fmt.Sprintf("unknown channel %q", entry.Channel))
			continue
		}
		if first, dup := seen[channel]; dup {
			add(path+".channel", fmt.Sprintf("channel %s already selected at channels[%d]", channel, first))
			continue
		}
		seen[channel] = idx

		cadence := planner.DefaultsFor(channel).CadencePerWeek
		if entry.Cadence != nil {
			cadence = *entry.Cadence
		}

		automation := planner.AutomationAssisted
		if strings.TrimSpace(entry.AutomationPreference) != "" {
			level, ok := planner.ParseAutomationLevel(entry.AutomationPreference)
			if !ok {
				add(path+".automationPreference", fmt.Sprintf("must be manual, assisted or autonomous, got %q", entry.AutomationPreference))
				continue
			}
			automation = level
		}

		channels = append(channels, planner.ChannelInput{
			Channel:              channel,
			Cadence:              cadence,
			AutomationPreference: automation,
		})
	}

	if len(errs) > 0 {
		return planner.Input{}, errs
	}

	return planner.Input{
		Name:           f.Name,
		Audience:       f.Audience,
		BrandVoice:     f.BrandVoice,
		PrimaryGoal:    goal,
		DurationWeeks:  f.DurationWeeks,
		ContentPillars: pillars,
		Metrics:        metrics,
		Notes:          f.Notes,
		Channels:       channels,
	}, nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
