package rest

import (
	"net/http"
	"time"
)

// userPayload is the wire shape of a profile.
type userPayload struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	AvatarColor      string    `json:"avatar_color"`
	CreatedAt        time.Time `json:"created_at"`
	SpotifyConnected bool      `json:"spotify_connected"`
	SpotifyName      string    `json:"spotify_display_name,omitempty"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]userPayload, len(users))
	for i, u := range users {
		payload[i] = userPayload{
			ID:               u.ID,
			Name:             u.Name,
			AvatarColor:      u.AvatarColor,
			CreatedAt:        u.CreatedAt,
			SpotifyConnected: u.SpotifyUserID != "",
			SpotifyName:      u.SpotifyDisplayName,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": payload})
}

type createUserRequest struct {
	Name        string `json:"name"`
	AvatarColor string `json:"avatar_color"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.store.CreateUser(r.Context(), req.Name, req.AvatarColor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload{
		ID:               u.ID,
		Name:             u.Name,
		AvatarColor:      u.AvatarColor,
		CreatedAt:        u.CreatedAt,
		SpotifyConnected: u.SpotifyUserID != "",
		SpotifyName:      u.SpotifyDisplayName,
	})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
