package rest

import (
	"net/http"

	"github.com/dailyjams/dailyjams/internal/infra/store"
)

func (h *Handler) handleEnabledSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.EnabledSourcesForUser(r.Context(), userIDQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSources(w, sources)
}

func (h *Handler) handleAllSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.SourcesForUser(r.Context(), userIDQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSources(w, sources)
}

type updateSourceRequest struct {
	UserID   int64 `json:"user_id"`
	SourceID int64 `json:"source_id"`
	Enabled  bool  `json:"enabled"`
}

func (h *Handler) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var req updateSourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SourceID <= 0 {
		writeError(w, http.StatusBadRequest, "source_id is required")
		return
	}
	if req.UserID <= 0 {
		req.UserID = 1
	}

	if err := h.store.SetUserSourceEnabled(r.Context(), req.UserID, req.SourceID, req.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type addSourceRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (h *Handler) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.store.AddSource(r.Context(), req.Name, req.URL, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteSource(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeSources(w http.ResponseWriter, sources []store.Source) {
	if sources == nil {
		sources = []store.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}
