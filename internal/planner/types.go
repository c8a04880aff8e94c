package planner

// ChannelType identifies a supported distribution channel.
type ChannelType string

const (
	ChannelInstagram  ChannelType = "instagram"
	ChannelTikTok     ChannelType = "tiktok"
	ChannelLinkedIn   ChannelType = "linkedin"
	ChannelTwitter    ChannelType = "twitter"
	ChannelYouTube    ChannelType = "youtube"
	ChannelFacebook   ChannelType = "facebook"
	ChannelNewsletter ChannelType = "newsletter"
)

// AutomationLevel is how much an agent may do on a channel without a human.
type AutomationLevel string

const (
	AutomationManual     AutomationLevel = "manual"
	AutomationAssisted   AutomationLevel = "assisted"
	AutomationAutonomous AutomationLevel = "autonomous"
)

// Goal is the campaign's primary objective.
type Goal string

const (
	GoalAwareness         Goal = "awareness"
	GoalEngagement        Goal = "engagement"
	GoalConversion        Goal = "conversion"
	GoalRetention         Goal = "retention"
	GoalThoughtLeadership Goal = "thoughtLeadership"
)

// ChannelDefault is the baseline guardrail set for a channel.
type ChannelDefault struct {
	Channel             ChannelType
	CadencePerWeek      int
	ContentPillars      []string
	ToneGuidance        string
	PrimaryCallToAction string
	AutomationLevel     AutomationLevel
	AssetFormats        []string
}

// ChannelPlan holds the generated guardrails for one channel.
type ChannelPlan struct {
	ID                  string          `json:"id"`
	Channel             ChannelType     `json:"channel"`
	CadencePerWeek      int             `json:"cadencePerWeek"`
	ContentPillars      []string        `json:"contentPillars"`
	ToneGuidance        string          `json:"toneGuidance"`
	PrimaryCallToAction string          `json:"primaryCallToAction"`
	AutomationLevel     AutomationLevel `json:"automationLevel"`
	AssetFormats        []string        `json:"assetFormats"`
}

// AgentPlan is a complete generated campaign plan.
//
// CreatedAt and UpdatedAt are ISO-8601 strings rather than time.Time so that
// imported plans keep their exact original representation.
type AgentPlan struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Audience           string        `json:"audience"`
	BrandVoice         string        `json:"brandVoice"`
	Goals              []string      `json:"goals"`
	DurationWeeks      int           `json:"durationWeeks"`
	Metrics            []string      `json:"metrics"`
	Notes              string        `json:"notes,omitempty"`
	Channels           []ChannelPlan `json:"channels"`
	DeliverableSummary string        `json:"deliverableSummary"`
	CreatedAt          string        `json:"createdAt"`
	UpdatedAt          string        `json:"updatedAt"`
}

// ChannelInput is the validated per-channel part of the builder form.
type ChannelInput struct {
	Channel              ChannelType
	Cadence              int
	AutomationPreference AutomationLevel
}

// Input is validated builder form data. Generate assumes every field already
// satisfies the form contract and does not check it again.
type Input struct {
	Name           string
	Audience       string
	BrandVoice     string
	PrimaryGoal    Goal
	DurationWeeks  int
	ContentPillars []string
	Metrics        []string
	Notes          string
	Channels       []ChannelInput
}

// Export is the envelope written by plan exports.
type Export struct {
	Plan       AgentPlan `json:"plan"`
	ExportedAt string    `json:"exportedAt"`
	Version    string    `json:"version"`
}

// PromptInput configures ComposePrompt.
type PromptInput struct {
	Plan         AgentPlan
	Persona      string
	Angle        string
	CallToAction string
}
