package domain

// RiskLevel is the classification state of a message. A message starts at
// RiskPending and moves to exactly one terminal level, never back.
type RiskLevel string

const (
	RiskPending RiskLevel = "pending"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskError   RiskLevel = "error"
)

// Trend values reported relative to the surrounding conversation.
const (
	TrendStable       = "stable"
	TrendEscalating   = "escalating"
	TrendDeescalating = "de-escalating"
)

// Recommended actions attached to an assessment.
const (
	ActionAllow = "allow"
	ActionFlag  = "flag"
)

type Pattern struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// RiskAssessment is the classification outcome embedded in a Message.
// Score and Confidence are integer percentages in [0,100]; both stay at the
// 0 sentinel while the level is pending.
type RiskAssessment struct {
	Level        RiskLevel
	Score        int
	Confidence   int
	Explanations []string
	Patterns     []Pattern
	Action       string
	Trend        string
}

// PendingAssessment is the initial state of every appended message.
func PendingAssessment() RiskAssessment {
	return RiskAssessment{Level: RiskPending}
}

// FallbackAssessment is the terminal outcome applied when classification
// fails for any reason. The message never stays pending once a request
// has been dispatched.
func FallbackAssessment(reason string) RiskAssessment {
	return RiskAssessment{
		Level:        RiskError,
		Score:        0,
		Explanations: []string{"analysis unavailable: " + reason},
		Patterns:     []Pattern{{Name: "Analysis unavailable", Severity: "medium"}},
		Action:       ActionFlag,
		Trend:        TrendStable,
	}
}

// Terminal reports whether the assessment left the pending state.
func (a RiskAssessment) Terminal() bool {
	return a.Level != RiskPending && a.Level != ""
}

// ShouldPause is derived purely from the level: only the highest severity
// tier recommends interrupting the conversation. The server never enforces
// the pause itself.
func (a RiskAssessment) ShouldPause() bool {
	return a.Level == RiskHigh
}
