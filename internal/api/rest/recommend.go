package rest

import (
	"net/http"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

// preferencePayload is the wire shape of one recommendation request's
// preferences, matching the persisted column names.
type preferencePayload struct {
	TimeOfDay      string   `json:"time_of_day"`
	Mood           string   `json:"mood"`
	Interest       string   `json:"interest"`
	Tempo          int      `json:"tempo"`
	InstrumentsYes []string `json:"instruments_yes"`
	InstrumentsNo  []string `json:"instruments_no"`
	Genres         []string `json:"genres"`
	TrendingNow    bool     `json:"trending_now"`
	DiscoverNew    bool     `json:"discover_new"`
	DiscoveryLevel int      `json:"discovery_level"`
}

func (p preferencePayload) toDomain() *preference.Set {
	return &preference.Set{
		TimeOfDay:      p.TimeOfDay,
		Mood:           p.Mood,
		Interest:       p.Interest,
		Tempo:          p.Tempo,
		InstrumentsYes: p.InstrumentsYes,
		InstrumentsNo:  p.InstrumentsNo,
		Genres:         p.Genres,
		TrendingNow:    p.TrendingNow,
		DiscoverNew:    p.DiscoverNew,
		DiscoveryLevel: p.DiscoveryLevel,
	}
}

type recommendRequest struct {
	UserID            int64             `json:"user_id"`
	Preferences       preferencePayload `json:"preferences"`
	SessionExclusions []string          `json:"session_exclusions"`
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		req.UserID = 1
	}

	recs, err := h.svc.Recommend(r.Context(), req.UserID, req.Preferences.toDomain(), req.SessionExclusions)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": recs})
}

type feedbackRequest struct {
	UserID       int64  `json:"user_id"`
	SuggestionID int64  `json:"suggestion_id"`
	FeedbackType string `json:"feedback_type"`
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SuggestionID <= 0 || req.FeedbackType == "" {
		writeError(w, http.StatusBadRequest, "suggestion_id and feedback_type are required")
		return
	}
	if req.UserID <= 0 {
		req.UserID = 1
	}

	if err := h.svc.SaveFeedback(r.Context(), req.UserID, req.SuggestionID, req.FeedbackType); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := userIDQuery(r)

	entries, err := h.store.FeedbackHistory(r.Context(), userID, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}
