package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	apperrors "guardian-chat/errors"
	"guardian-chat/observability"
	"guardian-chat/repositories"
	"guardian-chat/services"
)

// Dependencies groups everything the HTTP surface needs.
type Dependencies struct {
	Service services.IChatService
	Auth    services.IAuthService
	Monitor *observability.Monitor
	Archive repositories.IMessageArchive
	Search  *repositories.SearchIndex
	Socket  http.Handler
	Log     *slog.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewRouter wires the REST endpoints and the websocket upgrade path.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Log, http.StatusOK, map[string]any{
			"status": "ok",
			"rooms":  deps.Service.RoomCount(),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Log, http.StatusOK, deps.Monitor.Snapshot(deps.Service.RoomCount()))
	})

	r.Get("/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		var cursor *string
		if c := r.URL.Query().Get("cursor"); c != "" {
			cursor = &c
		}

		messages, next, err := deps.Archive.Recent(room, cursor)
		if err != nil {
			deps.Log.Error("Failed to scan archive", "room", room, "err", err)
			writeJSON(w, deps.Log, http.StatusInternalServerError, map[string]string{"error": "archive unavailable"})
			return
		}
		if messages == nil {
			messages = []repositories.ArchivedMessage{}
		}
		writeJSON(w, deps.Log, http.StatusOK, map[string]any{
			"messages": messages,
			"cursor":   next,
		})
	})

	r.Get("/rooms/{room}/search", func(w http.ResponseWriter, r *http.Request) {
		if deps.Search == nil {
			writeJSON(w, deps.Log, http.StatusNotImplemented, map[string]string{"error": "search disabled"})
			return
		}
		room := chi.URLParam(r, "room")
		query := r.URL.Query().Get("q")
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		hits, total, err := deps.Search.Search(r.Context(), query, room, offset)
		if err != nil {
			deps.Log.Error("Search failed", "room", room, "err", err)
			writeJSON(w, deps.Log, http.StatusInternalServerError, map[string]string{"error": "search unavailable"})
			return
		}
		if hits == nil {
			hits = []repositories.SearchHit{}
		}
		writeJSON(w, deps.Log, http.StatusOK, map[string]any{
			"hits":  hits,
			"total": total,
		})
	})

	r.Post("/auth/register", authHandler(deps, func(c credentialsRequest) (services.Token, error) {
		return deps.Auth.Register(c.Username, c.Password)
	}))

	r.Post("/auth/login", authHandler(deps, func(c credentialsRequest) (services.Token, error) {
		return deps.Auth.Login(c.Username, c.Password)
	}))

	r.Handle("/ws", deps.Socket)

	return r
}

// authHandler decodes the credentials and maps the service sentinels to
// HTTP statuses. Registration and login only differ by the call they make.
func authHandler(deps Dependencies, call func(credentialsRequest) (services.Token, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			writeJSON(w, deps.Log, http.StatusNotImplemented, map[string]string{"error": "accounts disabled"})
			return
		}

		var creds credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, deps.Log, http.StatusBadRequest, map[string]string{"error": "malformed body"})
			return
		}

		token, err := call(creds)
		switch {
		case err == nil:
			writeJSON(w, deps.Log, http.StatusOK, map[string]string{"token": string(token)})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			writeJSON(w, deps.Log, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			writeJSON(w, deps.Log, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		case errors.Is(err, apperrors.ErrInvalidPassword):
			writeJSON(w, deps.Log, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			deps.Log.Error("Auth request failed", "err", err)
			writeJSON(w, deps.Log, http.StatusInternalServerError, map[string]string{"error": "auth unavailable"})
		}
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("Failed to encode response", "err", err)
	}
}
