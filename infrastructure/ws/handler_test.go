package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"guardian-chat/auth"
	"guardian-chat/contract"
	"guardian-chat/domain"
	"guardian-chat/domain/event"
	"guardian-chat/errors"
	"guardian-chat/mocks"
)

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/?" + query
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, query), nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHandler_DeliversRoomEvents(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a service capturing the session sink on join
	var captured contract.EventSink
	joined := make(chan struct{})
	service.EXPECT().
		Join(domain.RoomID("chat_room"), gomock.Any(), "alice", gomock.Any()).
		DoAndReturn(func(_ domain.RoomID, _ string, username string, s contract.EventSink) (domain.Participant, error) {
			captured = s
			close(joined)
			return domain.Participant{Username: username}, nil
		})
	service.EXPECT().Leave(domain.RoomID("chat_room"), gomock.Any()).AnyTimes()

	server := httptest.NewServer(NewHandler(service, nil, log, 16))
	defer server.Close()

	// When connecting and an event reaches the session sink
	conn := dial(t, server, "room=chat_room&username=alice")
	defer conn.Close()
	<-joined
	req.NoError(captured.Consume(context.Background(), event.SystemMessage{
		Room: "chat_room", Text: "alice joined the chat", Type: event.TypeJoin,
	}))

	// Then the frame arrives on the socket
	frame := readFrame(t, conn)
	req.Equal(EventSystemMessage, frame.Event)
	var payload systemMessagePayload
	req.NoError(json.Unmarshal(frame.Data, &payload))
	req.Equal("alice joined the chat", payload.Text)
}

func TestHandler_ForwardsPostedMessages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	service.EXPECT().
		Join(domain.RoomID("chat_room"), gomock.Any(), "alice", gomock.Any()).
		Return(domain.Participant{Username: "alice"}, nil)
	service.EXPECT().Leave(domain.RoomID("chat_room"), gomock.Any()).AnyTimes()

	// Then the text is handed to the service, blank frames are dropped
	posted := make(chan string, 1)
	service.EXPECT().
		PostMessage(domain.RoomID("chat_room"), gomock.Any(), "hello").
		Do(func(_ domain.RoomID, _ string, text string) {
			posted <- text
		})

	server := httptest.NewServer(NewHandler(service, nil, log, 16))
	defer server.Close()

	conn := dial(t, server, "room=chat_room&username=alice")
	defer conn.Close()

	// When sending a blank frame, an unknown event, then a real message
	req.NoError(conn.WriteJSON(Envelope{Event: EventChatMessage, Data: json.RawMessage(`{"text":"   "}`)}))
	req.NoError(conn.WriteJSON(Envelope{Event: "typing", Data: json.RawMessage(`{}`)}))
	req.NoError(conn.WriteJSON(Envelope{Event: EventChatMessage, Data: json.RawMessage(`{"text":"hello"}`)}))

	select {
	case text := <-posted:
		req.Equal("hello", text)
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: message never reached the service")
	}
}

func TestHandler_RejectsFullRoom(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a room refusing the join
	service.EXPECT().
		Join(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Participant{}, errors.ErrRoomFull)

	server := httptest.NewServer(NewHandler(service, nil, log, 16))
	defer server.Close()

	// When connecting
	conn := dial(t, server, "username=bob")
	defer conn.Close()

	// Then an error frame explains the rejection before the close
	frame := readFrame(t, conn)
	req.Equal(EventError, frame.Event)
	req.JSONEq(`{"message":"room is full"}`, string(frame.Data))
}

func TestHandler_RequiresValidToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	server := httptest.NewServer(NewHandler(service, tokens, log, 16))
	defer server.Close()

	// When connecting without a token
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "username=alice"), nil)

	// Then the handshake is refused before any upgrade
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_TokenOverridesUsername(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	signed, err := tokens.Generate("alice")
	req.NoError(err)

	// Then the identity comes from the token, not the query parameter
	service.EXPECT().
		Join(domain.RoomID("chat_room"), gomock.Any(), "alice", gomock.Any()).
		Return(domain.Participant{Username: "alice"}, nil)
	service.EXPECT().Leave(domain.RoomID("chat_room"), gomock.Any()).AnyTimes()

	server := httptest.NewServer(NewHandler(service, tokens, log, 16))
	defer server.Close()

	// When connecting with a signed token and a spoofed username
	conn := dial(t, server, "room=chat_room&username=mallory&token="+signed)
	defer conn.Close()

	// Give the join expectation time to be satisfied
	time.Sleep(50 * time.Millisecond)
}
