package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseWsSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestFullChatFlow() {
	t := s.T()
	alice := "alice-" + uuid.NewString()[:8]
	bob := "bob-" + uuid.NewString()[:8]

	// --- STEP 0: HEALTH ---
	s.Run("Step 0: Server reports healthy", func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Config.ServerAddr))
		s.Require().NoError(err, "Failed to reach the health endpoint")
		defer resp.Body.Close()
		s.Require().Equal(http.StatusOK, resp.StatusCode)

		var body struct {
			Status string `json:"status"`
			Rooms  int    `json:"rooms"`
		}
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		s.Require().Equal("ok", body.Status)
	})

	// --- STEP 1: JOIN ANNOUNCEMENTS ---
	aliceConn := s.Connect(t, "Connecting alice", alice)
	defer aliceConn.Close()

	s.Run("Step 1: Joiner receives its own announcement", func() {
		frame := s.WaitFor(t, aliceConn, "system_message")
		var payload systemMessage
		s.Require().NoError(json.Unmarshal(frame.Data, &payload))
		s.Require().Equal("join", payload.Type)
		s.Require().Equal(alice+" joined the chat", payload.Text)
	})

	bobConn := s.Connect(t, "Connecting bob", bob)
	defer bobConn.Close()

	s.Run("Step 2: Existing participants see new joiners", func() {
		frame := s.WaitFor(t, aliceConn, "system_message")
		var payload systemMessage
		s.Require().NoError(json.Unmarshal(frame.Data, &payload))
		s.Require().Equal(bob+" joined the chat", payload.Text)
		// Bob sees his own announcement as well
		s.WaitFor(t, bobConn, "system_message")
	})

	// --- STEP 3: POST AND BROADCAST ---
	var messageID string
	s.Run("Step 3: Posted message is broadcast as pending", func() {
		s.Send(t, aliceConn, "chat_message", map[string]string{"text": "add me on discord"})

		for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
			frame := s.WaitFor(t, conn, "chat_message")
			var payload chatMessage
			s.Require().NoError(json.Unmarshal(frame.Data, &payload))
			s.Require().Equal(alice, payload.Username)
			s.Require().Equal("add me on discord", payload.Text)
			s.Require().Equal("pending", payload.RiskLevel)
			messageID = payload.MessageID
		}
	})

	// --- STEP 4: CLASSIFICATION ---
	s.Run("Step 4: Risk update follows for the same message", func() {
		for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
			frame := s.WaitFor(t, conn, "risk_update")
			var payload riskUpdate
			s.Require().NoError(json.Unmarshal(frame.Data, &payload))
			s.Require().Equal(messageID, payload.MessageID)
			s.Require().NotEqual("pending", payload.RiskLevel)
			s.Require().NotEmpty(payload.Action)
		}
	})

	// --- STEP 5: ARCHIVE ---
	s.Run("Step 5: Classified message lands in the room history", func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/rooms/%s/messages", s.Config.ServerAddr, s.Config.Room))
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Require().Equal(http.StatusOK, resp.StatusCode)

		var body struct {
			Messages []struct {
				ID        string `json:"id"`
				Text      string `json:"text"`
				RiskLevel string `json:"risk_level"`
			} `json:"messages"`
		}
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		s.Require().NotEmpty(body.Messages)
		s.Require().Equal(messageID, body.Messages[0].ID)
		s.Require().NotEqual("pending", body.Messages[0].RiskLevel)
	})
}
