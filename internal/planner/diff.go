package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between the indented JSON of two plans. It
// returns an empty string when they are identical.
func Diff(from, to AgentPlan, fromLabel, toLabel string) (string, error) {
	a, err := json.MarshalIndent(from, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", fromLabel, err)
	}
	b, err := json.MarshalIndent(to, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", toLabel, err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", toLabel, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
