package library

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"agentplan/internal/planner"
)

type planSource []planner.AgentPlan

func (s planSource) String(i int) string {
	p := s[i]
	return p.Name + " " + p.Audience + " " + strings.Join(p.Goals, " ")
}

func (s planSource) Len() int { return len(s) }

// Search returns plans matching query, best match first. An empty query
// returns plans unchanged.
func Search(plans []planner.AgentPlan, query string) []planner.AgentPlan {
	query = strings.TrimSpace(query)
	if query == "" {
		return plans
	}
	matches := fuzzy.FindFrom(query, planSource(plans))
	out := make([]planner.AgentPlan, 0, len(matches))
	for _, m := range matches {
		out = append(out, plans[m.Index])
	}
	return out
}
