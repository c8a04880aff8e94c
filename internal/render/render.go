// Package render formats plans for terminal output.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"agentplan/internal/planner"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	chipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Padding(0, 1)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4A5568")).
			Padding(0, 1)
	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
)

// Card renders the summary card shown in plan listings.
func Card(p planner.AgentPlan, active bool, now time.Time) string {
	title := titleStyle.Render(p.Name)
	if active {
		title += " " + activeStyle.Render("● active")
	}

	lines := []string{
		title,
		mutedStyle.Render(p.Audience),
		accentStyle.Render(fmt.Sprintf("%d channels · %d week campaign", len(p.Channels), p.DurationWeeks)),
		mutedStyle.Render("Updated " + Age(p.UpdatedAt, now)),
	}
	if len(p.Metrics) > 0 {
		lines = append(lines, mutedStyle.Render(strings.Join(p.Metrics, ", ")))
	}
	if p.DeliverableSummary != "" {
		lines = append(lines, "", p.DeliverableSummary)
	}
	if chips := channelChips(p.Channels); chips != "" {
		lines = append(lines, "", chips)
	}
	lines = append(lines, mutedStyle.Render(p.ID))

	style := cardStyle
	if active {
		style = activeCardStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

// Detail renders every field of p including per-channel guardrails.
func Detail(p planner.AgentPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(p.Name))
	fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(p.ID))

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", accentStyle.Render(label+":"), value)
	}
	field("Audience", p.Audience)
	field("Brand voice", p.BrandVoice)
	for _, g := range p.Goals {
		goal, ok := planner.ParseGoal(g)
		if !ok {
			field("Goal", g)
			continue
		}
		field("Goal", fmt.Sprintf("%s (%s)", planner.GoalLabel(goal), planner.NarrativeFor(goal)))
	}
	field("Duration", fmt.Sprintf("%d weeks", p.DurationWeeks))
	field("Metrics", strings.Join(p.Metrics, ", "))
	field("Notes", p.Notes)
	field("Summary", p.DeliverableSummary)
	field("Created", p.CreatedAt)
	field("Updated", p.UpdatedAt)

	for _, ch := range p.Channels {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", titleStyle.Render(planner.ChannelLabel(ch.Channel)))
		field("  Cadence", fmt.Sprintf("%d/wk", ch.CadencePerWeek))
		field("  Automation", string(ch.AutomationLevel))
		field("  Tone", ch.ToneGuidance)
		field("  Call to action", ch.PrimaryCallToAction)
		field("  Pillars", strings.Join(ch.ContentPillars, ", "))
		field("  Formats", strings.Join(ch.AssetFormats, ", "))
	}
	return b.String()
}

func channelChips(channels []planner.ChannelPlan) string {
	chips := make([]string, 0, len(channels))
	for _, ch := range channels {
		chips = append(chips, chipStyle.Render(fmt.Sprintf("%s · %d/wk", ch.Channel, ch.CadencePerWeek)))
	}
	return strings.Join(chips, " ")
}
