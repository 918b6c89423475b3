package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
)

// InsertSuggestion records one surfaced recommendation and returns the
// ledger identifier assigned to it.
func (s *Store) InsertSuggestion(ctx context.Context, userID int64, rec suggestion.Parsed, sourcesUsed []string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO music_suggestions (user_id, band_name, genre, description, match_reason, sources_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, rec.BandName, rec.Genre, rec.Description, rec.MatchReason,
		strings.Join(sourcesUsed, ", "), now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert suggestion")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get suggestion id")
	}
	return id, nil
}

// SavePreferences stores the preference snapshot that produced a
// suggestion.
func (s *Store) SavePreferences(ctx context.Context, suggestionID int64, prefs *preference.Set) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (
			suggestion_id, time_of_day, mood, interest, tempo,
			instruments_yes, instruments_no, genres,
			trending_now, discover_new, discovery_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		suggestionID, prefs.TimeOfDay, prefs.Mood, prefs.Interest, prefs.Tempo,
		strings.Join(prefs.InstrumentsYes, ", "), strings.Join(prefs.InstrumentsNo, ", "),
		strings.Join(prefs.Genres, ", "),
		boolToInt(prefs.TrendingNow), boolToInt(prefs.DiscoverNew),
		prefs.DiscoveryLevel, now())
	return errors.Wrap(err, "failed to save preferences")
}

// UpsertFeedback records a user's verdict on a suggestion. A second
// verdict for the same (suggestion, user) pair overwrites the first.
func (s *Store) UpsertFeedback(ctx context.Context, suggestionID, userID int64, feedbackType suggestion.FeedbackType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_feedback (suggestion_id, user_id, feedback_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(suggestion_id, user_id)
		DO UPDATE SET feedback_type = excluded.feedback_type, created_at = excluded.created_at`,
		suggestionID, userID, string(feedbackType), now())
	return errors.Wrap(err, "failed to upsert feedback")
}

// RecentlySkippedBands returns distinct band names the user skipped
// within the window.
func (s *Store) RecentlySkippedBands(ctx context.Context, userID int64, window time.Duration) ([]string, error) {
	cutoff := formatTime(time.Now().Add(-window))
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ms.band_name
		FROM user_feedback uf
		JOIN music_suggestions ms ON ms.id = uf.suggestion_id
		WHERE uf.user_id = ? AND uf.feedback_type = 'skipped' AND uf.created_at >= ?
		ORDER BY ms.band_name`,
		userID, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query skipped bands")
	}
	defer rows.Close()
	return scanStrings(rows)
}

// AllRatedBands returns every distinct band the user has given any
// feedback on, regardless of verdict or age.
func (s *Store) AllRatedBands(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ms.band_name
		FROM user_feedback uf
		JOIN music_suggestions ms ON ms.id = uf.suggestion_id
		WHERE uf.user_id = ?
		ORDER BY ms.band_name`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query rated bands")
	}
	defer rows.Close()
	return scanStrings(rows)
}

// HistoryEntry is one row of a user's suggestion history, joined with
// any feedback given.
type HistoryEntry struct {
	SuggestionID int64     `json:"suggestion_id"`
	BandName     string    `json:"band_name"`
	Genre        string    `json:"genre"`
	Description  string    `json:"description"`
	MatchReason  string    `json:"match_reason"`
	SourcesUsed  string    `json:"sources_used"`
	FeedbackType string    `json:"feedback_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FeedbackHistory returns the user's suggestions with their verdicts,
// newest first.
func (s *Store) FeedbackHistory(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ms.id, ms.band_name, COALESCE(ms.genre, ''), COALESCE(ms.description, ''),
		       COALESCE(ms.match_reason, ''), COALESCE(ms.sources_used, ''),
		       COALESCE(uf.feedback_type, ''), ms.created_at
		FROM music_suggestions ms
		LEFT JOIN user_feedback uf ON uf.suggestion_id = ms.id AND uf.user_id = ms.user_id
		WHERE ms.user_id = ?
		ORDER BY ms.id DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
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
			return nil, errors.Wrap(err, "failed to scan history entry")
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SuggestionByID returns a single ledger row.
func (s *Store) SuggestionByID(ctx context.Context, id int64) (*suggestion.Suggestion, error) {
	var (
		sg          suggestion.Suggestion
		sourcesUsed string
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, band_name, COALESCE(genre, ''), COALESCE(description, ''),
		       COALESCE(match_reason, ''), COALESCE(sources_used, ''), created_at
		FROM music_suggestions WHERE id = ?`, id).
		Scan(&sg.ID, &sg.UserID, &sg.BandName, &sg.Genre, &sg.Description,
			&sg.MatchReason, &sourcesUsed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "suggestion %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query suggestion")
	}
	if sourcesUsed != "" {
		sg.SourcesUsed = strings.Split(sourcesUsed, ", ")
	}
	sg.CreatedAt = parseTime(createdAt)
	return &sg, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
