package store

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// migration represents a database schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "core_tables",
		SQL: `
			-- User profiles (separate suggestion/feedback history per profile)
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				avatar_color TEXT NOT NULL DEFAULT '#2980b9',
				created_at TEXT NOT NULL
			);

			-- One row per recommendation surfaced to a user
			CREATE TABLE IF NOT EXISTS music_suggestions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				band_name TEXT NOT NULL,
				genre TEXT,
				description TEXT,
				match_reason TEXT,
				sources_used TEXT,
				created_at TEXT NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_suggestions_user ON music_suggestions(user_id);
			CREATE INDEX IF NOT EXISTS idx_suggestions_band ON music_suggestions(band_name);

			-- Preferences that generated each suggestion, denormalized
			CREATE TABLE IF NOT EXISTS user_preferences (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				suggestion_id INTEGER NOT NULL,
				time_of_day TEXT,
				mood TEXT,
				interest TEXT,
				tempo INTEGER,
				instruments_yes TEXT,
				instruments_no TEXT,
				genres TEXT,
				trending_now INTEGER NOT NULL DEFAULT 0,
				discover_new INTEGER NOT NULL DEFAULT 0,
				discovery_level INTEGER NOT NULL DEFAULT 3,
				created_at TEXT NOT NULL,
				FOREIGN KEY(suggestion_id) REFERENCES music_suggestions(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_preferences_suggestion ON user_preferences(suggestion_id);

			-- At most one feedback row per (suggestion, user)
			CREATE TABLE IF NOT EXISTS user_feedback (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				suggestion_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				feedback_type TEXT NOT NULL CHECK(feedback_type IN ('positive', 'negative', 'skipped', 'save_later')),
				created_at TEXT NOT NULL,
				UNIQUE(suggestion_id, user_id),
				FOREIGN KEY(suggestion_id) REFERENCES music_suggestions(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_feedback_user ON user_feedback(user_id);
			CREATE INDEX IF NOT EXISTS idx_feedback_created ON user_feedback(created_at DESC);
		`,
	},
	{
		Version: 2,
		Name:    "sources",
		SQL: `
			-- Global music discovery sources
			CREATE TABLE IF NOT EXISTS source_preferences (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				source_name TEXT NOT NULL UNIQUE,
				source_url TEXT,
				description TEXT,
				is_enabled INTEGER NOT NULL DEFAULT 1
			);

			-- Per-user overrides of the global enabled flag
			CREATE TABLE IF NOT EXISTS user_source_preferences (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				source_id INTEGER NOT NULL,
				is_enabled INTEGER NOT NULL,
				UNIQUE(user_id, source_id),
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY(source_id) REFERENCES source_preferences(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 3,
		Name:    "playlists",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_playlists (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				playlist_name TEXT NOT NULL,
				spotify_playlist_id TEXT,
				spotify_url TEXT,
				band_count INTEGER NOT NULL DEFAULT 0,
				track_count INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS playlist_suggestions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				playlist_id INTEGER NOT NULL,
				suggestion_id INTEGER NOT NULL,
				track_count INTEGER NOT NULL DEFAULT 0,
				UNIQUE(playlist_id, suggestion_id),
				FOREIGN KEY(playlist_id) REFERENCES user_playlists(id) ON DELETE CASCADE,
				FOREIGN KEY(suggestion_id) REFERENCES music_suggestions(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 4,
		Name:    "spotify_support",
		SQL: `
			ALTER TABLE users ADD COLUMN spotify_user_id TEXT;
			ALTER TABLE users ADD COLUMN spotify_display_name TEXT;
			ALTER TABLE users ADD COLUMN spotify_access_token TEXT;
			ALTER TABLE users ADD COLUMN spotify_refresh_token TEXT;
			ALTER TABLE users ADD COLUMN spotify_token_expires_at INTEGER;
			ALTER TABLE users ADD COLUMN spotify_connected_at TEXT;

			-- Raw synced listening history, one JSON blob per
			-- (user, data_type, optional time_range)
			CREATE TABLE IF NOT EXISTS taste_data (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				data_type TEXT NOT NULL,
				time_range TEXT,
				data TEXT NOT NULL,
				synced_at TEXT NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_taste_data_user ON taste_data(user_id, data_type);
		`,
	},
}

// migrate applies pending migrations in order.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return errors.Wrap(err, "failed to begin migration transaction")
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %d (%s) failed", m.Version, m.Name)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, now()); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to record migration %d", m.Version)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to commit migration %d", m.Version)
		}

		zlog.Info().Int("version", m.Version).Str("name", m.Name).Msg("applied migration")
	}

	return nil
}
