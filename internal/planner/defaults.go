package planner

import "strings"

// FallbackNarrative is used for goals outside the known set.
const FallbackNarrative = "Balanced channel mix with adaptive messaging."

var channelOrder = []ChannelType{
	ChannelInstagram,
	ChannelTikTok,
	ChannelLinkedIn,
	ChannelTwitter,
	ChannelYouTube,
	ChannelFacebook,
	ChannelNewsletter,
}

var channelLabels = map[ChannelType]string{
	ChannelInstagram:  "Instagram",
	ChannelTikTok:     "TikTok",
	ChannelLinkedIn:   "LinkedIn",
	ChannelTwitter:    "X / Twitter",
	ChannelYouTube:    "YouTube",
	ChannelFacebook:   "Facebook",
	ChannelNewsletter: "Email Newsletter",
}

var channelDefaults = map[ChannelType]ChannelDefault{
	ChannelInstagram: {
		Channel:             ChannelInstagram,
		CadencePerWeek:      3,
		ContentPillars:      []string{"Behind-the-scenes", "Community highlights"},
		ToneGuidance:        "Vibrant, personable, authentic",
		PrimaryCallToAction: "Drive profile visits and story replies",
		AutomationLevel:     AutomationAssisted,
		AssetFormats:        []string{"Reels", "Stories", "Carousel"},
	},
	ChannelTikTok: {
		Channel:             ChannelTikTok,
		CadencePerWeek:      4,
		ContentPillars:      []string{"Trends remix", "Educational tips"},
		ToneGuidance:        "Playful, quick, trend-aware",
		PrimaryCallToAction: "Encourage follows and comments",
		AutomationLevel:     AutomationAssisted,
		AssetFormats:        []string{"Short-form video", "Live sessions"},
	},
	ChannelLinkedIn: {
		Channel:             ChannelLinkedIn,
		CadencePerWeek:      2,
		ContentPillars:      []string{"Thought leadership", "Case studies"},
		ToneGuidance:        "Confident, insightful, B2B-friendly",
		PrimaryCallToAction: "Generate leads and conversation",
		AutomationLevel:     AutomationManual,
		AssetFormats:        []string{"Articles", "Carousel", "Documents"},
	},
	ChannelTwitter: {
		Channel:             ChannelTwitter,
		CadencePerWeek:      5,
		ContentPillars:      []string{"Hot takes", "Micro updates"},
		ToneGuidance:        "Witty, concise, timely",
		PrimaryCallToAction: "Spark replies and reposts",
		AutomationLevel:     AutomationAutonomous,
		AssetFormats:        []string{"Threads", "Spaces"},
	},
	ChannelYouTube: {
		Channel:             ChannelYouTube,
		CadencePerWeek:      1,
		ContentPillars:      []string{"Deep dives", "Explain-it-like-I’m-five"},
		ToneGuidance:        "Educational, story-driven",
		PrimaryCallToAction: "Drive subscribers and watch time",
		AutomationLevel:     AutomationManual,
		AssetFormats:        []string{"Long-form video", "YouTube Shorts"},
	},
	ChannelFacebook: {
		Channel:             ChannelFacebook,
		CadencePerWeek:      3,
		ContentPillars:      []string{"Community Q&A", "Announcements"},
		ToneGuidance:        "Friendly, informative",
		PrimaryCallToAction: "Engage comments and shares",
		AutomationLevel:     AutomationAssisted,
		AssetFormats:        []string{"Live video", "Events", "Posts"},
	},
	ChannelNewsletter: {
		Channel:             ChannelNewsletter,
		CadencePerWeek:      1,
		ContentPillars:      []string{"Curated insights", "Product updates"},
		ToneGuidance:        "Editorial, value-first",
		PrimaryCallToAction: "Drive click-through to site",
		AutomationLevel:     AutomationManual,
		AssetFormats:        []string{"Email digest", "Automations"},
	},
}

var goalOrder = []Goal{
	GoalAwareness,
	GoalEngagement,
	GoalConversion,
	GoalRetention,
	GoalThoughtLeadership,
}

var goalLabels = map[Goal]string{
	GoalAwareness:         "Brand awareness",
	GoalEngagement:        "Community engagement",
	GoalConversion:        "Conversions & sales",
	GoalRetention:         "Customer retention",
	GoalThoughtLeadership: "Thought leadership",
}

var goalNarratives = map[Goal]string{
	GoalAwareness:         "Top-of-funnel campaigns emphasizing storytelling and reach.",
	GoalEngagement:        "Interactive formats, live activations, and community-driven prompts.",
	GoalConversion:        "Offer-driven narratives with strong calls-to-action and retargeting.",
	GoalRetention:         "Lifecycle messaging to keep existing audience delighted and informed.",
	GoalThoughtLeadership: "Long-form insights, data storytelling, and expert POVs.",
}

// DefaultsFor returns the baseline guardrails for channel. The returned
// slices are copies; the table itself is never exposed.
func DefaultsFor(channel ChannelType) ChannelDefault {
	def := channelDefaults[channel]
	def.ContentPillars = cloneStrings(def.ContentPillars)
	def.AssetFormats = cloneStrings(def.AssetFormats)
	return def
}

// Channels returns every supported channel in display order.
func Channels() []ChannelType {
	out := make([]ChannelType, len(channelOrder))
	copy(out, channelOrder)
	return out
}

// ChannelLabel returns the display label for channel, or the raw identifier
// when it is unknown.
func ChannelLabel(channel ChannelType) string {
	if label, ok := channelLabels[channel]; ok {
		return label
	}
	return string(channel)
}

// ParseChannel maps a user-supplied identifier onto a known channel.
func ParseChannel(value string) (ChannelType, bool) {
	channel := ChannelType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := channelDefaults[channel]
	return channel, ok
}

// NarrativeFor returns the deliverable narrative for goal. Unknown goals get
// FallbackNarrative.
func NarrativeFor(goal Goal) string {
	if narrative, ok := goalNarratives[goal]; ok {
		return narrative
	}
	return FallbackNarrative
}

// Goals returns every known goal in display order.
func Goals() []Goal {
	out := make([]Goal, len(goalOrder))
	copy(out, goalOrder)
	return out
}

// GoalLabel returns the display label for goal.
func GoalLabel(goal Goal) string {
	if label, ok := goalLabels[goal]; ok {
		return label
	}
	return string(goal)
}

// ParseGoal maps a user-supplied goal onto a known goal. The kebab-case
// spelling "thought-leadership" is accepted as well.
func ParseGoal(value string) (Goal, bool) {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "thought-leadership") || strings.EqualFold(trimmed, "thought_leadership") {
		return GoalThoughtLeadership, true
	}
	for _, goal := range goalOrder {
		if strings.EqualFold(trimmed, string(goal)) {
			return goal, true
		}
	}
	return Goal(trimmed), false
}

// ParseAutomationLevel maps a user-supplied value onto a known level.
func ParseAutomationLevel(value string) (AutomationLevel, bool) {
	level := AutomationLevel(strings.ToLower(strings.TrimSpace(value)))
	switch level {
	case AutomationManual, AutomationAssisted, AutomationAutonomous:
		return level, true
	}
	return level, false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
