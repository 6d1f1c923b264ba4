package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apperrors "guardian-chat/errors"
	"guardian-chat/mocks"
	"guardian-chat/observability"
	"guardian-chat/repositories"
	"guardian-chat/services"
)

func newTestRouter(t *testing.T) (*mocks.MockIChatService, *mocks.MockIMessageArchive, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := mocks.NewMockIChatService(ctrl)
	archive := mocks.NewMockIMessageArchive(ctrl)
	router := NewRouter(Dependencies{
		Service: service,
		Monitor: observability.NewMonitor(log),
		Archive: archive,
		Log:     log,
	})
	return service, archive, router
}

func TestRouter_Health(t *testing.T) {
	req := require.New(t)

	// Given a service reporting two active rooms
	service, _, router := newTestRouter(t)
	service.EXPECT().RoomCount().Return(2)

	// When hitting the health endpoint
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Then the room count is reported alongside the status
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"status":"ok","rooms":2}`, rec.Body.String())
}

func TestRouter_Stats(t *testing.T) {
	req := require.New(t)

	// Given a monitor behind the stats endpoint
	service, _, router := newTestRouter(t)
	service.EXPECT().RoomCount().Return(1)

	// When hitting it
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	// Then runtime figures are present
	req.Equal(http.StatusOK, rec.Code)
	var stats map[string]any
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	req.EqualValues(1, stats["rooms"])
	req.Contains(stats, "goroutines")
	req.Contains(stats, "uptime_seconds")
}

func TestRouter_RecentMessages(t *testing.T) {
	req := require.New(t)

	// Given one archived message for the room
	_, archive, router := newTestRouter(t)
	next := "cursor-1"
	archive.EXPECT().Recent("chat_room", nil).Return([]repositories.ArchivedMessage{
		{ID: "msg_1", Room: "chat_room", Author: "alice", Text: "hello", At: time.Now().UTC(), RiskLevel: "low"},
	}, &next, nil)

	// When reading the room history
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/chat_room/messages", nil))

	// Then the page and its resume cursor come back
	req.Equal(http.StatusOK, rec.Code)
	var body struct {
		Messages []repositories.ArchivedMessage `json:"messages"`
		Cursor   *string                        `json:"cursor"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Len(body.Messages, 1)
	req.Equal("msg_1", body.Messages[0].ID)
	req.NotNil(body.Cursor)
	req.Equal("cursor-1", *body.Cursor)
}

func TestRouter_RecentMessagesForwardsCursor(t *testing.T) {
	req := require.New(t)

	// Given a client resuming from a previous page
	_, archive, router := newTestRouter(t)
	archive.EXPECT().Recent("chat_room", gomock.Cond(func(c *string) bool {
		return c != nil && *c == "cursor-1"
	})).Return(nil, nil, nil)

	// When passing the cursor as a query parameter
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/chat_room/messages?cursor=cursor-1", nil))

	// Then an empty page still serializes as an array
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), `"messages":[]`)
}

func TestRouter_RecentMessagesArchiveFailure(t *testing.T) {
	req := require.New(t)

	// Given a failing archive
	_, archive, router := newTestRouter(t)
	archive.EXPECT().Recent("chat_room", nil).Return(nil, nil, errors.New("disk on fire"))

	// When reading the room history
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/chat_room/messages", nil))

	// Then the failure maps to a 500 without leaking the cause
	req.Equal(http.StatusInternalServerError, rec.Code)
	req.JSONEq(`{"error":"archive unavailable"}`, rec.Body.String())
}

func TestRouter_RegisterIssuesToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given an auth service behind the register endpoint
	auth := mocks.NewMockIAuthService(ctrl)
	router := NewRouter(Dependencies{
		Service: mocks.NewMockIChatService(ctrl),
		Auth:    auth,
		Monitor: observability.NewMonitor(log),
		Archive: mocks.NewMockIMessageArchive(ctrl),
		Log:     log,
	})
	auth.EXPECT().Register("alice42", "ComplexPass123!").Return(services.Token("signed-token"), nil)

	// When registering
	body := strings.NewReader(`{"username":"alice42","password":"ComplexPass123!"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", body))

	// Then the signed token comes back
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"token":"signed-token"}`, rec.Body.String())
}

func TestRouter_LoginRejectsBadCredentials(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	auth := mocks.NewMockIAuthService(ctrl)
	router := NewRouter(Dependencies{
		Service: mocks.NewMockIChatService(ctrl),
		Auth:    auth,
		Monitor: observability.NewMonitor(log),
		Archive: mocks.NewMockIMessageArchive(ctrl),
		Log:     log,
	})
	auth.EXPECT().Login("alice42", "wrong").Return(services.Token(""), apperrors.ErrInvalidCredentials)

	// When logging in with a bad password
	body := strings.NewReader(`{"username":"alice42","password":"wrong"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	// Then the rejection stays generic
	req.Equal(http.StatusUnauthorized, rec.Code)
	req.JSONEq(`{"error":"invalid credentials"}`, rec.Body.String())
}

func TestRouter_AuthDisabledWithoutSecret(t *testing.T) {
	req := require.New(t)

	// Given a router built without an auth service
	_, _, router := newTestRouter(t)

	// When trying to register
	body := strings.NewReader(`{"username":"alice42","password":"ComplexPass123!"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", body))

	// Then accounts are reported as unavailable
	req.Equal(http.StatusNotImplemented, rec.Code)
	req.JSONEq(`{"error":"accounts disabled"}`, rec.Body.String())
}

func TestRouter_SearchDisabledWithoutIndex(t *testing.T) {
	req := require.New(t)

	// Given a router built without a search index
	_, _, router := newTestRouter(t)

	// When searching
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/chat_room/search?q=hello", nil))

	// Then the endpoint reports the feature as unavailable
	req.Equal(http.StatusNotImplemented, rec.Code)
	req.JSONEq(`{"error":"search disabled"}`, rec.Body.String())
}
