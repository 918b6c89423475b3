package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/dailyjams/dailyjams/internal/infra/spotify"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

const topTracksPerBand = 3

func (h *Handler) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.store.Playlists(r.Context(), userIDQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if playlists == nil {
		playlists = []store.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (h *Handler) handleSpotifyStatus(w http.ResponseWriter, r *http.Request) {
	userID := userIDQuery(r)
	ctx := r.Context()

	u, err := h.store.UserByID(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status, err := h.store.TasteSyncStatus(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"configured":   h.connector != nil,
		"connected":    u.SpotifyUserID != "",
		"display_name": u.SpotifyDisplayName,
		"sync":         status,
	})
}

type spotifyUserRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handler) handleSpotifySync(w http.ResponseWriter, r *http.Request) {
	var req spotifyUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client, ok := h.clientFor(w, r, &req.UserID)
	if !ok {
		return
	}
	ctx := r.Context()

	raw, err := client.FetchTasteData(ctx)
	if err != nil {
		writeServiceError(w, errors.Wrap(err, "taste sync failed"))
		return
	}
	if err := h.store.SaveTasteData(ctx, req.UserID, raw); err != nil {
		writeServiceError(w, err)
		return
	}

	status, err := h.store.TasteSyncStatus(ctx, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	zlog.Info().Int64("user_id", req.UserID).Int("artists", status.ArtistCount).Msg("taste synced")
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleSpotifyDisconnect(w http.ResponseWriter, r *http.Request) {
	var req spotifyUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		req.UserID = 1
	}

	if err := h.store.ClearSpotifyAuth(r.Context(), req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

type playlistCreateRequest struct {
	UserID       int64  `json:"user_id"`
	PlaylistName string `json:"playlist_name"`
}

// handlePlaylistCreate exports the user's save_later suggestions that
// are not yet in a playlist, pulling each band's top tracks.
func (h *Handler) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req playlistCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client, ok := h.clientFor(w, r, &req.UserID)
	if !ok {
		return
	}
	ctx := r.Context()

	saved, err := h.store.SavedForLater(ctx, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(saved) == 0 {
		writeError(w, http.StatusBadRequest, "no saved suggestions to export")
		return
	}

	var (
		trackIDs []string
		links    []store.PlaylistTrack
	)
	for _, entry := range saved {
		tracks := h.bandTopTracks(ctx, client, entry.BandName)
		if len(tracks) == 0 {
			continue
		}
		for _, t := range tracks {
			trackIDs = append(trackIDs, t.ID)
		}
		links = append(links, store.PlaylistTrack{SuggestionID: entry.SuggestionID, TrackCount: len(tracks)})
	}
	if len(trackIDs) == 0 {
		writeError(w, http.StatusBadRequest, "none of the saved bands could be found on Spotify")
		return
	}

	name := req.PlaylistName
	if name == "" {
		name = defaultPlaylistName()
	}
	spotifyID, url, err := client.CreatePlaylist(ctx, name, "Discovered with DailyJams")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := client.AddTracksToPlaylist(ctx, spotifyID, trackIDs); err != nil {
		writeServiceError(w, err)
		return
	}

	playlistID, err := h.store.SavePlaylist(ctx, store.Playlist{
		UserID:     req.UserID,
		Name:       name,
		SpotifyID:  spotifyID,
		SpotifyURL: url,
	}, links)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	zlog.Info().Int64("user_id", req.UserID).Int("bands", len(links)).Int("tracks", len(trackIDs)).Msg("playlist exported")
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          playlistID,
		"name":        name,
		"spotify_url": url,
		"band_count":  len(links),
		"track_count": len(trackIDs),
	})
}

type playlistAddRequest struct {
	UserID       int64 `json:"user_id"`
	SuggestionID int64 `json:"suggestion_id"`
}

// handlePlaylistAdd appends one suggestion's top tracks to an existing
// playlist.
func (h *Handler) handlePlaylistAdd(w http.ResponseWriter, r *http.Request) {
	playlistID, err := urlParamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req playlistAddRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SuggestionID <= 0 {
		writeError(w, http.StatusBadRequest, "suggestion_id is required")
		return
	}
	client, ok := h.clientFor(w, r, &req.UserID)
	if !ok {
		return
	}
	ctx := r.Context()

	sg, err := h.store.SuggestionByID(ctx, req.SuggestionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	playlists, err := h.store.Playlists(ctx, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var target *store.Playlist
	for i := range playlists {
		if playlists[i].ID == playlistID {
			target = &playlists[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}

	tracks := h.bandTopTracks(ctx, client, sg.BandName)
	if len(tracks) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s could not be found on Spotify", sg.BandName))
		return
	}
	trackIDs := make([]string, len(tracks))
	for i, t := range tracks {
		trackIDs[i] = t.ID
	}

	if err := client.AddTracksToPlaylist(ctx, target.SpotifyID, trackIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.store.AddPlaylistSuggestion(ctx, playlistID, sg.ID, len(tracks)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "added",
		"band_name":   sg.BandName,
		"track_count": len(tracks),
	})
}

// handleSpotifyAuthURL returns the consent URL that starts the connect
// flow for a profile.
func (h *Handler) handleSpotifyAuthURL(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusBadRequest, "Spotify is not configured")
		return
	}
	userID := userIDQuery(r)

	state := uuid.NewString()
	h.statesMu.Lock()
	h.states[state] = userID
	h.statesMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"url": h.auth.AuthURL(state)})
}

// handleSpotifyCallback completes the connect flow: exchanges the code
// and binds the account to the profile the state was minted for.
func (h *Handler) handleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || h.connector == nil {
		writeError(w, http.StatusBadRequest, "Spotify is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		writeError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	h.statesMu.Lock()
	userID, ok := h.states[state]
	delete(h.states, state)
	h.statesMu.Unlock()
	if !ok {
		writeError(w, http.StatusForbidden, "unknown state")
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.connector.Connect(r.Context(), userID, token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	zlog.Info().Int64("user_id", userID).Str("spotify_id", profile.ID).Msg("spotify connected")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "connected",
		"display_name": profile.DisplayName,
	})
}

// clientFor builds a per-user client, writing the error response itself
// on failure. Zero userID falls back to the bootstrap profile.
func (h *Handler) clientFor(w http.ResponseWriter, r *http.Request, userID *int64) (*spotify.Client, bool) {
	if h.connector == nil {
		writeError(w, http.StatusBadRequest, "Spotify is not configured")
		return nil, false
	}
	if *userID <= 0 {
		*userID = 1
	}

	client, err := h.connector.ClientFor(r.Context(), *userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Spotify is not connected for this profile")
			return nil, false
		}
		writeServiceError(w, err)
		return nil, false
	}
	return client, true
}

// bandTopTracks resolves a band to its top tracks, best effort.
func (h *Handler) bandTopTracks(ctx context.Context, client *spotify.Client, bandName string) []spotify.TrackInfo {
	info, err := client.SearchArtist(ctx, bandName)
	if err != nil || info == nil {
		zlog.Debug().Err(err).Str("band", bandName).Msg("artist lookup failed")
		return nil
	}
	tracks, err := client.ArtistTopTracks(ctx, info.ID, topTracksPerBand)
	if err != nil {
		zlog.Debug().Err(err).Str("band", bandName).Msg("top tracks lookup failed")
		return nil
	}
	return tracks
}

func defaultPlaylistName() string {
	return fmt.Sprintf("DailyJams %s", time.Now().Format("Jan 2, 2006"))
}
