package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"guardian-chat/auth"
	"guardian-chat/domain"
	"guardian-chat/errors"
	"guardian-chat/services"
	"guardian-chat/sink"
)

const (
	defaultRoom   = "chat_room"
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 45 * time.Second
	maxFrameBytes = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to chat sessions. One goroutine reads
// client frames, another drains the session sink towards the socket.
type Handler struct {
	service    services.IChatService
	tokens     *auth.TokenManager
	log        *slog.Logger
	bufferSize int
}

func NewHandler(service services.IChatService, tokens *auth.TokenManager, log *slog.Logger, bufferSize int) *Handler {
	return &Handler{service: service, tokens: tokens, log: log, bufferSize: bufferSize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(r.URL.Query().Get("room"))
	if roomID == "" {
		roomID = defaultRoom
	}
	username := r.URL.Query().Get("username")

	if h.tokens != nil {
		claims, err := h.tokens.Validate(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		username = claims.Username
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	sessionID := uuid.NewString()
	connSink := sink.NewConnSink(h.bufferSize)

	participant, err := h.service.Join(roomID, sessionID, username, connSink)
	if err != nil {
		h.rejectAndClose(conn, err)
		return
	}
	h.log.Info("Session joined", "room", roomID, "session", sessionID, "username", participant.Username)

	done := make(chan struct{})
	go h.writePump(conn, connSink, done)
	h.readLoop(conn, roomID, sessionID)

	close(done)
	h.service.Leave(roomID, sessionID)
	_ = conn.Close()
	h.log.Info("Session left", "room", roomID, "session", sessionID)
}

// rejectAndClose tells a refused client why before hanging up. Happens
// before the session is registered, so no leave is needed.
func (h *Handler) rejectAndClose(conn *websocket.Conn, err error) {
	message := "unable to join room"
	switch err {
	case errors.ErrRoomFull:
		message = "room is full"
	case errors.ErrRoomClosed:
		message = "room is closing"
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(errorEnvelope(message))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(writeWait))
	_ = conn.Close()
}

func (h *Handler) readLoop(conn *websocket.Conn, roomID domain.RoomID, sessionID string) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var envelope Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Read failed", "session", sessionID, "err", err)
			}
			return
		}

		switch envelope.Event {
		case EventChatMessage:
			var payload postMessagePayload
			if err := json.Unmarshal(envelope.Data, &payload); err != nil {
				h.log.Debug("Malformed chat payload", "session", sessionID, "err", err)
				continue
			}
			if strings.TrimSpace(payload.Text) == "" {
				continue
			}
			h.service.PostMessage(roomID, sessionID, payload.Text)
		default:
			h.log.Debug(fmt.Sprintf("Ignoring unknown event : %s", envelope.Event))
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, connSink *sink.ConnSink, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-connSink.Events:
			envelope, ok, err := toEnvelope(e)
			if err != nil {
				h.log.Warn("Failed to encode event", "err", err)
				continue
			}
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
