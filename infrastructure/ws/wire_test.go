package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

func TestToEnvelope_SystemMessage(t *testing.T) {
	req := require.New(t)

	// Given a join announcement
	evt := event.SystemMessage{Room: "chat_room", Text: "alice joined the chat", Type: event.TypeJoin}

	// When mapping it to a wire frame
	env, ok, err := toEnvelope(evt)

	// Then the frame carries the announcement
	req.NoError(err)
	req.True(ok)
	req.Equal(EventSystemMessage, env.Event)

	var payload systemMessagePayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("alice joined the chat", payload.Text)
	req.Equal("join", payload.Type)
}

func TestToEnvelope_ChatMessage(t *testing.T) {
	req := require.New(t)

	// Given a freshly posted message, still pending classification
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	evt := event.MessagePosted{
		Room: "chat_room",
		Message: domain.Message{
			ID:     "msg_1",
			Author: "alice",
			Text:   "hello",
			At:     at,
			Risk:   domain.RiskAssessment{Level: domain.RiskPending},
		},
	}

	// When mapping it to a wire frame
	env, ok, err := toEnvelope(evt)

	// Then the frame exposes the pending level and a millisecond timestamp
	req.NoError(err)
	req.True(ok)
	req.Equal(EventChatMessage, env.Event)

	var payload chatMessagePayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("msg_1", payload.MessageID)
	req.Equal("alice", payload.Username)
	req.Equal("hello", payload.Text)
	req.Equal(at.UnixMilli(), payload.Timestamp)
	req.Equal("pending", payload.RiskLevel)
	req.Zero(payload.RiskScore)
}

func TestToEnvelope_RiskUpdate(t *testing.T) {
	req := require.New(t)

	// Given a terminal high risk assessment
	evt := event.RiskUpdate{
		Room: "chat_room",
		Message: domain.Message{
			ID: "msg_1",
			Risk: domain.RiskAssessment{
				Level:        domain.RiskHigh,
				Score:        90,
				Confidence:   80,
				Patterns:     []domain.Pattern{{Name: "secrecy and imagery", Severity: "high"}},
				Explanations: []string{"requests for secrecy or images"},
				Action:       domain.ActionFlag,
				Trend:        domain.TrendEscalating,
			},
		},
	}

	// When mapping it to a wire frame
	env, ok, err := toEnvelope(evt)

	// Then every annotation field is carried over
	req.NoError(err)
	req.True(ok)
	req.Equal(EventRiskUpdate, env.Event)

	var payload riskUpdatePayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("msg_1", payload.MessageID)
	req.Equal("high", payload.RiskLevel)
	req.Equal(90, payload.RiskScore)
	req.Equal(80, payload.Confidence)
	req.Equal([]domain.Pattern{{Name: "secrecy and imagery", Severity: "high"}}, payload.Patterns)
	req.Equal([]string{"requests for secrecy or images"}, payload.Explanations)
	req.Equal("flag", payload.Action)
	req.Equal("escalating", payload.ConversationTrend)
	req.True(payload.ShouldPause)
}

func TestToEnvelope_RiskUpdateNormalizesNilSlices(t *testing.T) {
	req := require.New(t)

	// Given an assessment without patterns or explanations
	evt := event.RiskUpdate{
		Room: "chat_room",
		Message: domain.Message{
			ID:   "msg_1",
			Risk: domain.RiskAssessment{Level: domain.RiskLow, Action: domain.ActionAllow, Trend: domain.TrendStable},
		},
	}

	// When mapping it to a wire frame
	env, _, err := toEnvelope(evt)
	req.NoError(err)

	// Then clients receive empty arrays, never null
	req.Contains(string(env.Data), `"patterns":[]`)
	req.Contains(string(env.Data), `"explanations":[]`)
	req.False(jsonField(t, env.Data, "shouldPause").(bool))
}

func TestToEnvelope_UnknownEventIsSkipped(t *testing.T) {
	req := require.New(t)

	// When mapping an event the wire protocol does not know
	_, ok, err := toEnvelope(unknownEvent{})

	// Then the write pump is told to skip it
	req.NoError(err)
	req.False(ok)
}

func TestErrorEnvelope(t *testing.T) {
	req := require.New(t)

	// When building an error frame
	env := errorEnvelope("room is full")

	// Then it serializes as a plain error event
	req.Equal(EventError, env.Event)
	req.JSONEq(`{"message":"room is full"}`, string(env.Data))
}

type unknownEvent struct{}

func (unknownEvent) RoomID() domain.RoomID { return "chat_room" }

func jsonField(t *testing.T, data json.RawMessage, key string) any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m[key]
}
