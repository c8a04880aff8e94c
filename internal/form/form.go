// Package form loads and validates plan builder input.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"agentplan/internal/planner"
)

// Form is the raw builder input as written by a user.
type Form struct {
	Name           string         `yaml:"name" json:"name"`
	Audience       string         `yaml:"audience" json:"audience"`
	BrandVoice     string         `yaml:"brandVoice" json:"brandVoice"`
	PrimaryGoal    string         `yaml:"primaryGoal" json:"primaryGoal"`
	DurationWeeks  int            `yaml:"durationWeeks" json:"durationWeeks"`
	ContentPillars ListField      `yaml:"contentPillars" json:"contentPillars"`
	Metrics        ListField      `yaml:"metrics" json:"metrics"`
	Notes          string         `yaml:"notes,omitempty" json:"notes,omitempty"`
	Channels       []ChannelEntry `yaml:"channels" json:"channels"`
}

// ChannelEntry is one selected channel. Cadence and AutomationPreference are
// optional and fall back to the channel recommendation and "assisted".
type ChannelEntry struct {
	Channel              string `yaml:"channel" json:"channel"`
	Cadence              *int   `yaml:"cadence,omitempty" json:"cadence,omitempty"`
	AutomationPreference string `yaml:"automationPreference,omitempty" json:"automationPreference,omitempty"`
}

// ListField accepts either a comma/newline separated string or a list.
// List is non-nil when the value was written as a list; its entries are
// never split. Raw always holds the text used for length checks.
type ListField struct {
	Raw  string
	List []string
}

// NewList returns a ListField holding items as a list.
func NewList(items []string) ListField {
	return ListField{Raw: strings.Join(items, ", "), List: append([]string{}, items...)}
}

// Items returns the trimmed, non-empty entries. Strings are split on commas
// and newlines.
func (l ListField) Items() []string {
	if l.List == nil {
		return SplitList(l.Raw)
	}
	items := make([]string, 0, len(l.List))
	for _, item := range l.List {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ListField) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = ListField{Raw: value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = NewList(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (l ListField) MarshalYAML() (any, error) {
	if l.List != nil {
		return l.List, nil
	}
	return l.Raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *ListField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = NewList(items)
		return nil
	}
	*l = ListField{}
	return json.Unmarshal(trimmed, &l.Raw)
}

// MarshalJSON implements json.Marshaler.
func (l ListField) MarshalJSON() ([]byte, error) {
	if l.List != nil {
		return json.Marshal(l.List)
	}
	return json.Marshal(l.Raw)
}

// SplitList splits on commas and newlines, trims entries and drops empty ones.
func SplitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// Parse decodes a YAML (or JSON, which is valid YAML) builder form.
func Parse(data []byte, source string) (Form, error) {
	var f Form
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Form{}, ValidationErrors{{
			Source:  source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return f, nil
}

// LoadFile reads and validates a builder form from path.
func LoadFile(path string) (planner.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.Input{}, fmt.Errorf("read form: %w", err)
	}
	f, err := Parse(data, filepath.Base(path))
	if err != nil {
		return planner.Input{}, err
	}
	return Validate(f, filepath.Base(path))
}

// Default returns the starter form used by new workspaces.
func Default() Form {
	return Form{
		Name:           "Launch Sprint",
		Audience:       "Early adopter product managers seeking AI co-pilots",
		BrandVoice:     "Confident, energetic, forward-looking",
		PrimaryGoal:    string(planner.GoalAwareness),
		DurationWeeks:  6,
		ContentPillars: ListField{Raw: "Product education, User wins, Behind-the-scenes"},
		Metrics:        ListField{Raw: "Follower growth, Engagement rate, Click-through rate"},
		Channels: []ChannelEntry{
			recommended(planner.ChannelInstagram, planner.AutomationAssisted),
			recommended(planner.ChannelLinkedIn, planner.AutomationManual),
			recommended(planner.ChannelNewsletter, planner.AutomationManual),
		},
	}
}

// MarshalYAML renders f as a YAML document.
func MarshalYAML(f Form) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	return buf.Bytes(), nil
}

// FromPlan rebuilds a form from a stored plan so it can be edited and
// regenerated. User pillars are the ones not supplied by channel defaults.
func FromPlan(p planner.AgentPlan) Form {
	f := Form{
		Name:       p.Name,
		Audience:   p.Audience,
		BrandVoice: p.BrandVoice,
		Metrics:    NewList(p.Metrics),
		Notes:      p.Notes,
	}
	if len(p.Goals) > 0 {
		f.PrimaryGoal = p.Goals[0]
	}
	f.DurationWeeks = p.DurationWeeks

	var pillars []string
	seen := make(map[string]struct{})
	for _, ch := range p.Channels {
		defaults := make(map[string]struct{})
		for _, pillar := range planner.DefaultsFor(ch.Channel).ContentPillars {
			defaults[pillar] = struct{}{}
		}
		for _, pillar := range ch.ContentPillars {
			if _, ok := defaults[pillar]; ok {
				continue
			}
			if _, ok := seen[pillar]; ok {
				continue
			}
			seen[pillar] = struct{}{}
			pillars = append(pillars, pillar)
		}
		cadence := ch.CadencePerWeek
		f.Channels = append(f.Channels, ChannelEntry{
			Channel:              string(ch.Channel),
			Cadence:              &cadence,
			AutomationPreference: string(ch.AutomationLevel),
		})
	}
	f.ContentPillars = NewList(pillars)
	return f
}

func recommended(channel planner.ChannelType, automation planner.AutomationLevel) ChannelEntry {
	cadence := planner.DefaultsFor(channel).CadencePerWeek
	return ChannelEntry{
		Channel:              string(channel),
		Cadence:              &cadence,
		AutomationPreference: string(automation),
	}
}
