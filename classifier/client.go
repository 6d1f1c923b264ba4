// Package classifier resolves chat messages to risk assessments, either
// through the external classification backend or through the local keyword
// screener when no backend is configured.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"guardian-chat/domain"
)

// HistoryEntry is one element of the bounded conversation context sent to
// the backend.
type HistoryEntry struct {
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type classifyRequest struct {
	Text                string         `json:"text"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
	UserID              string         `json:"user_id,omitempty"`
}

type classifyResponse struct {
	RiskLevel             string           `json:"risk_level"`
	ConfidenceScore       float64          `json:"confidence_score"`
	Explanations          []string         `json:"explanations"`
	ShouldPause           bool             `json:"should_pause"`
	LLMConfidence         float64          `json:"llm_confidence"`
	Patterns              []domain.Pattern `json:"patterns"`
	Action                string           `json:"action"`
	ConversationRiskTrend string           `json:"conversation_risk_trend"`
}

// Client issues one POST per message to the classification backend.
// Any failure (transport, non-success status, malformed body) is converted
// into the fallback assessment so callers always receive a terminal outcome.
type Client struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

func NewClient(url string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *Client) Classify(ctx context.Context, text string, history []domain.Message, authorID string) domain.RiskAssessment {
	payload, err := json.Marshal(classifyRequest{
		Text:                text,
		ConversationHistory: ToHistory(history),
		UserID:              authorID,
	})
	if err != nil {
		return c.fallback("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return c.fallback("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fallback("backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.fallback(fmt.Sprintf("backend status %d", resp.StatusCode), nil)
	}

	var body classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return c.fallback("malformed response", err)
	}

	assessment, ok := toAssessment(body)
	if !ok {
		return c.fallback(fmt.Sprintf("unexpected risk level %q", body.RiskLevel), nil)
	}
	return assessment
}

func (c *Client) fallback(reason string, err error) domain.RiskAssessment {
	if err != nil {
		c.log.Warn("Classification failed", "reason", reason, "error", err)
		return domain.FallbackAssessment(fmt.Sprintf("%s: %v", reason, err))
	}
	c.log.Warn("Classification failed", "reason", reason)
	return domain.FallbackAssessment(reason)
}

// ToHistory maps the sliding window into the backend's wire shape.
func ToHistory(history []domain.Message) []HistoryEntry {
	return lo.Map(history, func(m domain.Message, _ int) HistoryEntry {
		return HistoryEntry{
			Username:  m.Author,
			Text:      m.Text,
			Timestamp: m.At.UnixMilli(),
		}
	})
}

// toAssessment scales the raw [0,1] confidences to integer percentages and
// passes pattern and explanation data through verbatim.
func toAssessment(body classifyResponse) (domain.RiskAssessment, bool) {
	level := domain.RiskLevel(strings.ToLower(body.RiskLevel))
	switch level {
	case domain.RiskLow, domain.RiskMedium, domain.RiskHigh:
	default:
		return domain.RiskAssessment{}, false
	}

	trend := body.ConversationRiskTrend
	if trend == "" {
		trend = domain.TrendStable
	}

	return domain.RiskAssessment{
		Level:        level,
		Score:        int(math.Round(body.ConfidenceScore * 100)),
		Confidence:   int(math.Round(body.LLMConfidence * 100)),
		Explanations: body.Explanations,
		Patterns:     body.Patterns,
		Action:       body.Action,
		Trend:        trend,
	}, true
}
