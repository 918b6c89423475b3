package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"

	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

// Taste data_type values stored per sync.
const (
	tasteTypeTopArtists  = "top_artists"
	tasteTypeFollowed    = "followed_artists"
	tasteTypeSavedTracks = "saved_tracks"
)

// SaveTasteData replaces the user's stored listening history with a
// fresh sync.
func (s *Store) SaveTasteData(ctx context.Context, userID int64, raw *taste.RawData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM taste_data WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "failed to clear old taste data")
	}

	syncedAt := formatTime(raw.SyncedAt)
	insert := func(dataType, timeRange string, v any) error {
		blob, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s data", dataType)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO taste_data (user_id, data_type, time_range, data, synced_at)
			VALUES (?, ?, NULLIF(?, ''), ?, ?)`,
			userID, dataType, timeRange, string(blob), syncedAt)
		return errors.Wrapf(err, "failed to insert %s data", dataType)
	}

	for timeRange, artists := range raw.TopArtists {
		if err := insert(tasteTypeTopArtists, timeRange, artists); err != nil {
			return err
		}
	}
	if err := insert(tasteTypeFollowed, "", raw.FollowedArtists); err != nil {
		return err
	}
	if err := insert(tasteTypeSavedTracks, "", raw.SavedTrackArtists); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

// TasteData loads the user's stored listening history. Returns nil when
// the user has never synced.
func (s *Store) TasteData(ctx context.Context, userID int64) (*taste.RawData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_type, COALESCE(time_range, ''), data, synced_at
		FROM taste_data WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query taste data")
	}
	defer rows.Close()

	raw := &taste.RawData{TopArtists: make(map[string][]taste.ArtistRecord)}
	found := false
	for rows.Next() {
		var dataType, timeRange, blob, syncedAt string
		if err := rows.Scan(&dataType, &timeRange, &blob, &syncedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan taste data")
		}
		found = true
		raw.SyncedAt = parseTime(syncedAt)

		var artists []taste.ArtistRecord
		if err := json.Unmarshal([]byte(blob), &artists); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s data", dataType)
		}

		switch dataType {
		case tasteTypeTopArtists:
			raw.TopArtists[timeRange] = artists
		case tasteTypeFollowed:
			raw.FollowedArtists = artists
		case tasteTypeSavedTracks:
			raw.SavedTrackArtists = artists
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read taste data")
	}
	if !found {
		return nil, nil
	}
	return raw, nil
}

// SyncStatus summarizes a user's taste sync state.
type SyncStatus struct {
	Synced      bool      `json:"synced"`
	SyncedAt    time.Time `json:"synced_at"`
	ArtistCount int       `json:"artist_count"`
}

// TasteSyncStatus reports whether and when the user last synced, and
// how many known artists the stored data folds to.
func (s *Store) TasteSyncStatus(ctx context.Context, userID int64) (SyncStatus, error) {
	raw, err := s.TasteData(ctx, userID)
	if err != nil {
		return SyncStatus{}, err
	}
	if raw == nil {
		return SyncStatus{}, nil
	}

	tc := taste.Build(raw)
	return SyncStatus{
		Synced:      true,
		SyncedAt:    raw.SyncedAt,
		ArtistCount: len(tc.KnownArtists),
	}, nil
}
