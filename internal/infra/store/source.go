package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// Source is one music discovery source row with the enabled flag
// resolved for a particular user.
type Source struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// SeedSource is a source definition used to populate the table on first
// startup.
type SeedSource struct {
	Name        string
	URL         string
	Description string
	Enabled     bool
}

// SeedDefaultSources inserts the given sources when missing. Existing
// rows keep their enabled flags.
func (s *Store) SeedDefaultSources(ctx context.Context, seeds []SeedSource) error {
	for _, seed := range seeds {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO source_preferences (source_name, source_url, description, is_enabled)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(source_name) DO NOTHING`,
			seed.Name, seed.URL, seed.Description, boolToInt(seed.Enabled)); err != nil {
			return errors.Wrapf(err, "failed to seed source %q", seed.Name)
		}
	}
	return nil
}

// SourcesForUser returns all sources with the global enabled flag
// overridden by the user's per-source preference when one exists.
func (s *Store) SourcesForUser(ctx context.Context, userID int64) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.source_name, COALESCE(sp.source_url, ''), COALESCE(sp.description, ''),
		       COALESCE(usp.is_enabled, sp.is_enabled)
		FROM source_preferences sp
		LEFT JOIN user_source_preferences usp
			ON usp.source_id = sp.id AND usp.user_id = ?
		ORDER BY sp.id`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sources")
	}
	defer rows.Close()
	return scanSources(rows)
}

// EnabledSourcesForUser returns only the sources the user's effective
// flag enables.
func (s *Store) EnabledSourcesForUser(ctx context.Context, userID int64) ([]Source, error) {
	all, err := s.SourcesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	enabled := make([]Source, 0, len(all))
	for _, src := range all {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled, nil
}

// SetUserSourceEnabled records a per-user override of a source's
// enabled flag.
func (s *Store) SetUserSourceEnabled(ctx context.Context, userID, sourceID int64, enabled bool) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM source_preferences WHERE id = ?`, sourceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "source %d", sourceID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to check source")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_source_preferences (user_id, source_id, is_enabled)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, source_id) DO UPDATE SET is_enabled = excluded.is_enabled`,
		userID, sourceID, boolToInt(enabled))
	return errors.Wrap(err, "failed to set source preference")
}

// AddSource creates a custom source, enabled by default.
func (s *Store) AddSource(ctx context.Context, name, url, description string) (int64, error) {
	if name == "" {
		return 0, errors.New("source name is required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO source_preferences (source_name, source_url, description, is_enabled)
		VALUES (?, ?, ?, 1)`,
		name, url, description)
	if err != nil {
		return 0, errors.Wrap(err, "failed to add source")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get source id")
	}
	return id, nil
}

// DeleteSource removes a source and, via cascade, any per-user
// overrides of it.
func (s *Store) DeleteSource(ctx context.Context, sourceID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM source_preferences WHERE id = ?`, sourceID)
	if err != nil {
		return errors.Wrap(err, "failed to delete source")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check delete result")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "source %d", sourceID)
	}
	return nil
}

func scanSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		var (
			src     Source
			enabled int
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Description, &enabled); err != nil {
			return nil, errors.Wrap(err, "failed to scan source")
		}
		src.Enabled = enabled != 0
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
