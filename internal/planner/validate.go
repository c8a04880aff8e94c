package planner

import (
	"fmt"
	"strings"
)

// ValidatePlan checks the structural fields a stored plan must carry.
func ValidatePlan(plan AgentPlan) error {
	if strings.TrimSpace(plan.ID) == "" {
		return fmt.Errorf("plan id is required")
	}
	if strings.TrimSpace(plan.Name) == "" {
		return fmt.Errorf("plan name is required")
	}
	if plan.Channels == nil {
		return fmt.Errorf("plan %s: channels must be an array", plan.ID)
	}
	for idx, ch := range plan.Channels {
		if err := ValidateChannelPlan(ch); err != nil {
			return fmt.Errorf("plan %s channel %d: %w", plan.ID, idx, err)
		}
	}
	return nil
}

// ValidateChannelPlan checks the fields a channel entry must carry.
func ValidateChannelPlan(ch ChannelPlan) error {
	if strings.TrimSpace(ch.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(ch.Channel)) == "" {
		return fmt.Errorf("channel is required")
	}
	return nil
}
