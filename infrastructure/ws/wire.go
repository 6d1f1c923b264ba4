package ws

import (
	"encoding/json"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

const (
	EventSystemMessage = "system_message"
	EventChatMessage   = "chat_message"
	EventRiskUpdate    = "risk_update"
	EventError         = "error"
)

// Envelope is the frame exchanged on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type systemMessagePayload struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type chatMessagePayload struct {
	MessageID string `json:"messageId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RiskLevel string `json:"riskLevel"`
	RiskScore int    `json:"riskScore"`
}

type riskUpdatePayload struct {
	MessageID         string           `json:"messageId"`
	RiskLevel         string           `json:"riskLevel"`
	RiskScore         int              `json:"riskScore"`
	Confidence        int              `json:"confidence"`
	Patterns          []domain.Pattern `json:"patterns"`
	Explanations      []string         `json:"explanations"`
	Action            string           `json:"action"`
	ConversationTrend string           `json:"conversationTrend"`
	ShouldPause       bool             `json:"shouldPause"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type postMessagePayload struct {
	Text string `json:"text"`
}

func newEnvelope(eventName string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: eventName, Data: data}, nil
}

// toEnvelope maps a domain event to its wire frame. Unknown events map
// to ok=false and are skipped by the write pump.
func toEnvelope(e event.DomainEvent) (Envelope, bool, error) {
	switch evt := e.(type) {
	case event.SystemMessage:
		env, err := newEnvelope(EventSystemMessage, systemMessagePayload{
			Text: evt.Text,
			Type: evt.Type,
		})
		return env, true, err
	case event.MessagePosted:
		env, err := newEnvelope(EventChatMessage, chatMessagePayload{
			MessageID: evt.Message.ID,
			Username:  evt.Message.Author,
			Text:      evt.Message.Text,
			Timestamp: evt.Message.At.UnixMilli(),
			RiskLevel: string(evt.Message.Risk.Level),
			RiskScore: evt.Message.Risk.Score,
		})
		return env, true, err
	case event.RiskUpdate:
		risk := evt.Message.Risk
		patterns := risk.Patterns
		if patterns == nil {
			patterns = []domain.Pattern{}
		}
		explanations := risk.Explanations
		if explanations == nil {
			explanations = []string{}
		}
		env, err := newEnvelope(EventRiskUpdate, riskUpdatePayload{
			MessageID:         evt.Message.ID,
			RiskLevel:         string(risk.Level),
			RiskScore:         risk.Score,
			Confidence:        risk.Confidence,
			Patterns:          patterns,
			Explanations:      explanations,
			Action:            risk.Action,
			ConversationTrend: risk.Trend,
			ShouldPause:       risk.ShouldPause(),
		})
		return env, true, err
	default:
		return Envelope{}, false, nil
	}
}

func errorEnvelope(message string) Envelope {
	data, _ := json.Marshal(errorPayload{Message: message})
	return Envelope{Event: EventError, Data: data}
}
