package planner

import (
	"fmt"
	"strings"
)

// Prompt defaults used when PromptInput leaves a field blank.
const (
	DefaultPersona      = "Product manager evaluating automation solutions"
	DefaultAngle        = "Spotlight how the AI agent reduces busywork while staying on-brand"
	DefaultCallToAction = "Invite readers to download the launch checklist"
)

// NoPlanPrompt is shown in place of a prompt when the library is empty.
const NoPlanPrompt = "Create a plan first to compose prompts that align with your orchestration brief."

var promptInstructions = []string{
	"Propose content ideas tailored to each channel while respecting cadence and automation modes.",
	"Surface experimentation ideas and note required assets.",
	"Outline success indicators per channel aligning with the metrics.",
	"Highlight cross-channel storytelling beats that create narrative cohesion.",
	"Provide compliance watchouts and escalation triggers.",
}

// ComposePrompt renders the agent prompt for a plan. Blank persona, angle or
// call to action fall back to the defaults.
func ComposePrompt(in PromptInput) string {
	persona := fallback(in.Persona, DefaultPersona)
	angle := fallback(in.Angle, DefaultAngle)
	cta := fallback(in.CallToAction, DefaultCallToAction)
	plan := in.Plan

	var b strings.Builder
	b.WriteString("You are an AI marketing agent collaborating with human stakeholders.\n\n")
	fmt.Fprintf(&b, "Plan: %s\n", plan.Name)
	fmt.Fprintf(&b, "Audience: %s\n", plan.Audience)
	fmt.Fprintf(&b, "Brand voice: %s\n", plan.BrandVoice)
	fmt.Fprintf(&b, "Primary goal: %s\n", strings.Join(plan.Goals, ", "))
	fmt.Fprintf(&b, "Duration: %d weeks\n", plan.DurationWeeks)
	fmt.Fprintf(&b, "Success metrics: %s\n\n", strings.Join(plan.Metrics, ", "))
	fmt.Fprintf(&b, "Audience persona focus: %s\n", persona)
	fmt.Fprintf(&b, "Content angle: %s\n", angle)
	fmt.Fprintf(&b, "Call to action: %s\n\n", cta)

	b.WriteString("Channel guardrails:\n")
	for _, ch := range plan.Channels {
		fmt.Fprintf(&b, "- %s: %dx/week, automation=%s, pillars=%s\n",
			strings.ToUpper(string(ch.Channel)),
			ch.CadencePerWeek,
			ch.AutomationLevel,
			strings.Join(ch.ContentPillars, ", "),
		)
	}

	b.WriteString("\nInstructions:")
	for idx, step := range promptInstructions {
		fmt.Fprintf(&b, "\n%d. %s", idx+1, step)
	}
	return b.String()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
