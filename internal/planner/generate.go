package planner

import (
	"crypto/rand"
	"fmt"
	"time"

	"agentplan/internal/nanoid"
)

// TimestampLayout is the ISO-8601 layout used for plan timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Weekly cadence bounds applied to every channel plan.
const (
	MinCadence = 1
	MaxCadence = 14
)

// IDSource produces unique identifiers.
type IDSource interface {
	NewID() string
}

// Generator turns validated input into plans. IDs and Now are the only
// sources of non-determinism and can be replaced in tests.
type Generator struct {
	IDs IDSource
	Now func() time.Time
}

// NewGenerator returns a Generator backed by crypto-random ids and the wall clock.
func NewGenerator() *Generator {
	return &Generator{
		IDs: &nanoid.Generator{Reader: rand.Reader},
		Now: time.Now,
	}
}

var defaultGenerator = &Generator{}

// Generate builds a plan using the default generator.
func Generate(in Input) AgentPlan {
	return defaultGenerator.Generate(in)
}

// Generate builds a complete AgentPlan from in.
func (g *Generator) Generate(in Input) AgentPlan {
	createdAt := FormatTimestamp(g.now())

	channels := make([]ChannelPlan, 0, len(in.Channels))
	for _, ch := range in.Channels {
		def := DefaultsFor(ch.Channel)
		channels = append(channels, ChannelPlan{
			ID:                  g.newID(),
			Channel:             ch.Channel,
			CadencePerWeek:      ClampCadence(ch.Cadence),
			ContentPillars:      mergeDistinct(def.ContentPillars, in.ContentPillars),
			ToneGuidance:        fmt.Sprintf("%s. Infuse %s voice.", def.ToneGuidance, in.BrandVoice),
			PrimaryCallToAction: def.PrimaryCallToAction,
			AutomationLevel:     ch.AutomationPreference,
			AssetFormats:        def.AssetFormats,
		})
	}

	return AgentPlan{
		ID:                 g.newID(),
		Name:               in.Name,
		Audience:           in.Audience,
		BrandVoice:         in.BrandVoice,
		Goals:              []string{string(in.PrimaryGoal)},
		DurationWeeks:      in.DurationWeeks,
		Metrics:            cloneStrings(in.Metrics),
		Notes:              in.Notes,
		Channels:           channels,
		DeliverableSummary: BuildSummary(in),
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
}

// Regenerate rebuilds existing from in, keeping its id and createdAt.
// Channel ids are fresh; updatedAt is the current time.
func (g *Generator) Regenerate(existing AgentPlan, in Input) AgentPlan {
	plan := g.Generate(in)
	plan.ID = existing.ID
	plan.CreatedAt = existing.CreatedAt
	return plan
}

// BuildSummary renders the one-sentence deliverable summary. The cadence
// total sums the raw channel cadences, before clamping.
func BuildSummary(in Input) string {
	cadenceTotal := 0
	for _, ch := range in.Channels {
		cadenceTotal += ch.Cadence
	}
	return fmt.Sprintf(
		"Plan spans %d weeks with %d touchpoints per week across %d channels. %s",
		in.DurationWeeks, cadenceTotal, len(in.Channels), NarrativeFor(in.PrimaryGoal),
	)
}

// ClampCadence saturates cadence into [1, 14].
func ClampCadence(cadence int) int {
	return max(MinCadence, min(MaxCadence, cadence))
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout as well as any RFC 3339 value.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func (g *Generator) newID() string {
	if g == nil || g.IDs == nil {
		return nanoid.New()
	}
	return g.IDs.NewID()
}

func (g *Generator) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func mergeDistinct(base, additions []string) []string {
	seen := make(map[string]struct{}, len(base)+len(additions))
	merged := make([]string, 0, len(base)+len(additions))
	for _, list := range [][]string{base, additions} {
		for _, value := range list {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			merged = append(merged, value)
		}
	}
	return merged
}
