package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// Playlist is one exported playlist row.
type Playlist struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	SpotifyID  string    `json:"spotify_playlist_id,omitempty"`
	SpotifyURL string    `json:"spotify_url,omitempty"`
	BandCount  int       `json:"band_count"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlaylistTrack links a suggestion that made it into a playlist.
type PlaylistTrack struct {
	SuggestionID int64
	TrackCount   int
}

// SavePlaylist records an exported playlist together with the
// suggestions it contains.
func (s *Store) SavePlaylist(ctx context.Context, p Playlist, tracks []PlaylistTrack) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	totalTracks := 0
	for _, t := range tracks {
		totalTracks += t.TrackCount
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO user_playlists (user_id, playlist_name, spotify_playlist_id, spotify_url, band_count, track_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.SpotifyID, p.SpotifyURL, len(tracks), totalTracks, now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert playlist")
	}
	playlistID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get playlist id")
	}

	for _, t := range tracks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_suggestions (playlist_id, suggestion_id, track_count)
			VALUES (?, ?, ?)
			ON CONFLICT(playlist_id, suggestion_id) DO NOTHING`,
			playlistID, t.SuggestionID, t.TrackCount); err != nil {
			return 0, errors.Wrap(err, "failed to link playlist suggestion")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit")
	}
	return playlistID, nil
}

// AddPlaylistSuggestion links one more suggestion into an existing
// playlist and bumps its counts.
func (s *Store) AddPlaylistSuggestion(ctx context.Context, playlistID, suggestionID int64, trackCount int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM user_playlists WHERE id = ?`, playlistID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "playlist %d", playlistID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to check playlist")
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_suggestions (playlist_id, suggestion_id, track_count)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id, suggestion_id) DO NOTHING`,
		playlistID, suggestionID, trackCount)
	if err != nil {
		return errors.Wrap(err, "failed to link suggestion")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check link result")
	}
	if n > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_playlists
			SET band_count = band_count + 1, track_count = track_count + ?
			WHERE id = ?`,
			trackCount, playlistID); err != nil {
			return errors.Wrap(err, "failed to update playlist counts")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

// Playlists returns a user's exported playlists, newest first.
func (s *Store) Playlists(ctx context.Context, userID int64) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, playlist_name, COALESCE(spotify_playlist_id, ''),
		       COALESCE(spotify_url, ''), band_count, track_count, created_at
		FROM user_playlists
		WHERE user_id = ?
		ORDER BY id DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlists")
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var (
			p         Playlist
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.SpotifyID, &p.SpotifyURL,
			&p.BandCount, &p.TrackCount, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist")
		}
		p.CreatedAt = parseTime(createdAt)
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// SuggestionsInPlaylists returns the set of suggestion ids the user has
// already exported to any playlist.
func (s *Store) SuggestionsInPlaylists(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ps.suggestion_id
		FROM playlist_suggestions ps
		JOIN user_playlists up ON up.id = ps.playlist_id
		WHERE up.user_id = ?`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist suggestions")
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan suggestion id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// BandsInPlaylists returns the set of band names the user has exported
// to any playlist, keyed for annotation lookups.
func (s *Store) BandsInPlaylists(ctx context.Context, userID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ms.band_name
		FROM playlist_suggestions ps
		JOIN user_playlists up ON up.id = ps.playlist_id
		JOIN music_suggestions ms ON ms.id = ps.suggestion_id
		WHERE up.user_id = ?`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist bands")
	}
	defer rows.Close()

	bands := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan band name")
		}
		bands[name] = struct{}{}
	}
	return bands, rows.Err()
}

// SavedForLater returns suggestions the user marked save_later that are
// not yet in any playlist, oldest first. These are the export
// candidates.
func (s *Store) SavedForLater(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ms.id, ms.band_name, COALESCE(ms.genre, ''), COALESCE(ms.description, ''),
		       COALESCE(ms.match_reason, ''), COALESCE(ms.sources_used, ''),
		       uf.feedback_type, ms.created_at
		FROM music_suggestions ms
		JOIN user_feedback uf ON uf.suggestion_id = ms.id AND uf.user_id = ms.user_id
		WHERE ms.user_id = ? AND uf.feedback_type = 'save_later'
		  AND ms.id NOT IN (
			SELECT ps.suggestion_id FROM playlist_suggestions ps
			JOIN user_playlists up ON up.id = ps.playlist_id
			WHERE up.user_id = ?
		  )
		ORDER BY ms.id`,
		userID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query saved suggestions")
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e         HistoryEntry
			createdAt string
		)
		if err := rows.Scan(&e.SuggestionID, &e.BandName, &e.Genre, &e.Description,
			&e.MatchReason, &e.SourcesUsed, &e.FeedbackType, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan saved suggestion")
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
