package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type systemMessage struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type chatMessage struct {
	MessageID string `json:"messageId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RiskLevel string `json:"riskLevel"`
	RiskScore int    `json:"riskScore"`
}

type riskUpdate struct {
	MessageID         string   `json:"messageId"`
	RiskLevel         string   `json:"riskLevel"`
	RiskScore         int      `json:"riskScore"`
	Confidence        int      `json:"confidence"`
	Explanations      []string `json:"explanations"`
	Action            string   `json:"action"`
	ConversationTrend string   `json:"conversationTrend"`
	ShouldPause       bool     `json:"shouldPause"`
}

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("CHAT_SERVER_ADDR not set, skipping end to end suite")
	}
}

// Connect dials the websocket endpoint as the given user, with logging and colors
func (s *BaseWsSuite) Connect(t *testing.T, name string, username string) *websocket.Conn {
	// 1. Print a colorized header for the connection step in logs
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	// 2. Build the upgrade URL with the room and identity
	query := url.Values{}
	query.Set("room", s.Config.Room)
	query.Set("username", username)
	if s.Config.Token != "" {
		query.Set("token", s.Config.Token)
	}
	endpoint := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws", RawQuery: query.Encode()}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.Config.ServerAddr)
	return conn
}

// Send writes one client frame, dumping it as JSON if E2E_DEBUG_JSON is enabled
func (s *BaseWsSuite) Send(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	frame := envelope{Event: eventName, Data: data}
	if s.Config.DebugJSON {
		raw, _ := json.Marshal(frame)
		t.Log("REQUEST:\n" + string(raw))
	}
	s.Require().NoError(conn.WriteJSON(frame))
}

// NextFrame reads one server frame within the deadline
func (s *BaseWsSuite) NextFrame(t *testing.T, conn *websocket.Conn) envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame envelope
	s.Require().NoError(conn.ReadJSON(&frame), "Timeout or bad frame while waiting for a server event")
	if s.Config.DebugJSON {
		raw, _ := json.Marshal(frame)
		t.Log("RESPONSE:\n" + string(raw))
	}
	return frame
}

// WaitFor reads frames until one matches the wanted event, discarding the others
func (s *BaseWsSuite) WaitFor(t *testing.T, conn *websocket.Conn, eventName string) envelope {
	for i := 0; i < 10; i++ {
		frame := s.NextFrame(t, conn)
		if frame.Event == eventName {
			return frame
		}
		t.Logf("Discarding %s frame while waiting for %s", frame.Event, eventName)
	}
	s.Require().FailNowf("Never received the expected event", "wanted %s", eventName)
	return envelope{}
}
