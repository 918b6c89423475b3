// Package rest exposes the JSON API over chi.
package rest

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	zlog "github.com/rs/zerolog/log"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
	"github.com/dailyjams/dailyjams/internal/infra/spotify"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

// Recommender is the pipeline surface the API calls into.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, prefs *preference.Set, sessionExclusions []string) ([]suggestion.Recommendation, error)
	SaveFeedback(ctx context.Context, userID, suggestionID int64, feedbackType string) error
}

// Handler serves the JSON API.
type Handler struct {
	store     *store.Store
	svc       Recommender
	connector *spotify.Connector // nil when Spotify is not configured
	auth      *spotify.Auth      // nil when Spotify is not configured

	statesMu sync.Mutex
	states   map[string]int64 // pending OAuth states -> user id
}

// NewHandler creates a Handler. connector and auth may be nil.
func NewHandler(st *store.Store, svc Recommender, connector *spotify.Connector, auth *spotify.Auth) *Handler {
	return &Handler{
		store:     st,
		svc:       svc,
		connector: connector,
		auth:      auth,
		states:    make(map[string]int64),
	}
}

// Router builds the API route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/recommend", h.handleRecommend)
		r.Post("/feedback", h.handleFeedback)
		r.Get("/history", h.handleHistory)

		r.Get("/sources", h.handleEnabledSources)
		r.Get("/sources/all", h.handleAllSources)
		r.Post("/sources/update", h.handleUpdateSource)
		r.Post("/sources/add", h.handleAddSource)
		r.Delete("/sources/{id}", h.handleDeleteSource)

		r.Get("/users", h.handleListUsers)
		r.Post("/users", h.handleCreateUser)
		r.Get("/users/{id}", h.handleGetUser)
		r.Delete("/users/{id}", h.handleDeleteUser)

		r.Get("/playlists", h.handlePlaylists)

		r.Route("/spotify", func(r chi.Router) {
			r.Get("/auth-url", h.handleSpotifyAuthURL)
			r.Get("/callback", h.handleSpotifyCallback)
			r.Get("/status", h.handleSpotifyStatus)
			r.Post("/sync", h.handleSpotifySync)
			r.Post("/disconnect", h.handleSpotifyDisconnect)
			r.Post("/playlist/create", h.handlePlaylistCreate)
			r.Post("/playlist/{id}/add", h.handlePlaylistAdd)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, suggestion.ErrInvalidFeedbackType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zlog.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// userIDQuery reads the user_id query parameter, defaulting to the
// bootstrap profile.
func userIDQuery(r *http.Request) int64 {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 1
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 1
	}
	return id
}

func urlParamID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
