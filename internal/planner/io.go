package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ExportVersion is written into every export envelope.
const ExportVersion = "1.0.0"

// ErrNoPlans is returned when an import payload holds no usable plan.
var ErrNoPlans = errors.New("no valid plan found in file")

var whitespaceRun = regexp.MustCompile(`\s+`)

// LoadPlan reads a plan from path. Export envelopes are unwrapped.
func LoadPlan(path string) (AgentPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentPlan{}, fmt.Errorf("read plan: %w", err)
	}
	plans, err := ParseImport(data)
	if err != nil {
		return AgentPlan{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := ValidatePlan(plans[0]); err != nil {
		return AgentPlan{}, err
	}
	return plans[0], nil
}

// NewExport wraps plan in an export envelope stamped with now.
func NewExport(plan AgentPlan, now time.Time) Export {
	return Export{
		Plan:       plan,
		ExportedAt: FormatTimestamp(now),
		Version:    ExportVersion,
	}
}

// MarshalExport renders an export envelope as indented JSON.
func MarshalExport(exp Export) ([]byte, error) {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// WriteExport writes plan's export envelope to path, creating parent dirs.
func WriteExport(path string, plan AgentPlan, now time.Time) error {
	data, err := MarshalExport(NewExport(plan, now))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ExportFileName derives a download name from the plan name, replacing runs of
// whitespace with dashes.
func ExportFileName(plan AgentPlan, suffix string) string {
	return whitespaceRun.ReplaceAllString(plan.Name, "-") + suffix
}

// ParseImport extracts plans from an import payload. Accepted shapes are a
// JSON array of plans, a single plan, or an export envelope. Array entries
// that do not look like plans are skipped.
func ParseImport(data []byte) ([]AgentPlan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoPlans
	}

	var candidates []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &candidates); err != nil {
			return nil, fmt.Errorf("parse import json: %w", err)
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("parse import json: %w", err)
		}
		if looksLikePlan(obj) {
			candidates = append(candidates, json.RawMessage(trimmed))
		} else if wrapped, ok := obj["plan"]; ok {
			candidates = append(candidates, wrapped)
		}
	default:
		var discard any
		if err := json.Unmarshal(trimmed, &discard); err != nil {
			return nil, fmt.Errorf("parse import json: %w", err)
		}
	}

	var plans []AgentPlan
	for _, raw := range candidates {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || !looksLikePlan(obj) {
			continue
		}
		var plan AgentPlan
		if err := json.Unmarshal(raw, &plan); err != nil {
			continue
		}
		plans = append(plans, plan)
	}
	if len(plans) == 0 {
		return nil, ErrNoPlans
	}
	return plans, nil
}

func looksLikePlan(obj map[string]json.RawMessage) bool {
	return isJSONKind(obj["id"], '"') && isJSONKind(obj["name"], '"') && isJSONKind(obj["channels"], '[')
}

func isJSONKind(raw json.RawMessage, first byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == first
}
