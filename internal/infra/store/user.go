package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultUserName is the profile created on first startup so the app
// works before any profile management happens.
const DefaultUserName = "Default"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User represents a profile row.
type User struct {
	ID                 int64
	Name               string
	AvatarColor        string
	CreatedAt          time.Time
	SpotifyUserID      string
	SpotifyDisplayName string
	SpotifyConnectedAt time.Time
}

// SpotifyAuth holds a user's stored Spotify credentials.
type SpotifyAuth struct {
	UserID       int64
	SpotifyID    string
	DisplayName  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// CreateUser inserts a new profile and returns its identifier.
func (s *Store) CreateUser(ctx context.Context, name, avatarColor string) (int64, error) {
	if name == "" {
		return 0, errors.New("user name is required")
	}
	if avatarColor == "" {
		avatarColor = "#2980b9"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, avatar_color, created_at) VALUES (?, ?, ?)`,
		name, avatarColor, now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to create user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get user id")
	}
	return id, nil
}

// Users returns all profiles ordered by creation.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avatar_color, created_at,
		       COALESCE(spotify_user_id, ''), COALESCE(spotify_display_name, ''),
		       COALESCE(spotify_connected_at, '')
		FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserByID returns a single profile.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, avatar_color, created_at,
		       COALESCE(spotify_user_id, ''), COALESCE(spotify_display_name, ''),
		       COALESCE(spotify_connected_at, '')
		FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "user %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a profile and, via cascade, its history.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check delete result")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "user %d", id)
	}
	return nil
}

// EnsureDefaultUser creates the default profile when no profiles exist
// and returns its identifier.
func (s *Store) EnsureDefaultUser(ctx context.Context) (int64, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}
	if count > 0 {
		var id int64
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM users ORDER BY id LIMIT 1`).Scan(&id); err != nil {
			return 0, errors.Wrap(err, "failed to read first user")
		}
		return id, nil
	}
	return s.CreateUser(ctx, DefaultUserName, "")
}

// SaveSpotifyAuth stores Spotify credentials on the profile.
func (s *Store) SaveSpotifyAuth(ctx context.Context, auth SpotifyAuth) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			spotify_user_id = ?,
			spotify_display_name = ?,
			spotify_access_token = ?,
			spotify_refresh_token = ?,
			spotify_token_expires_at = ?,
			spotify_connected_at = ?
		WHERE id = ?`,
		auth.SpotifyID, auth.DisplayName, auth.AccessToken, auth.RefreshToken,
		auth.ExpiresAt.Unix(), now(), auth.UserID)
	if err != nil {
		return errors.Wrap(err, "failed to save spotify auth")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "user %d", auth.UserID)
	}
	return nil
}

// SpotifyAuthByUser returns stored credentials, or ErrNotFound when the
// user never connected.
func (s *Store) SpotifyAuthByUser(ctx context.Context, userID int64) (*SpotifyAuth, error) {
	var (
		auth      SpotifyAuth
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(spotify_user_id, ''), COALESCE(spotify_display_name, ''),
		       COALESCE(spotify_access_token, ''), COALESCE(spotify_refresh_token, ''),
		       spotify_token_expires_at
		FROM users WHERE id = ?`, userID).
		Scan(&auth.SpotifyID, &auth.DisplayName, &auth.AccessToken, &auth.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "user %d", userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query spotify auth")
	}
	if auth.RefreshToken == "" {
		return nil, errors.Wrapf(ErrNotFound, "user %d has no spotify connection", userID)
	}

	auth.UserID = userID
	if expiresAt.Valid {
		auth.ExpiresAt = time.Unix(expiresAt.Int64, 0)
	}
	return &auth, nil
}

// ClearSpotifyAuth disconnects the profile from Spotify and drops the
// synced taste data that came with the connection.
func (s *Store) ClearSpotifyAuth(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET
			spotify_user_id = NULL,
			spotify_display_name = NULL,
			spotify_access_token = NULL,
			spotify_refresh_token = NULL,
			spotify_token_expires_at = NULL,
			spotify_connected_at = NULL
		WHERE id = ?`, userID); err != nil {
		return errors.Wrap(err, "failed to clear spotify auth")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM taste_data WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "failed to clear taste data")
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var (
		u           User
		createdAt   string
		connectedAt string
	)
	if err := r.Scan(&u.ID, &u.Name, &u.AvatarColor, &createdAt,
		&u.SpotifyUserID, &u.SpotifyDisplayName, &connectedAt); err != nil {
		return User{}, errors.Wrap(err, "failed to scan user")
	}
	u.CreatedAt = parseTime(createdAt)
	if connectedAt != "" {
		u.SpotifyConnectedAt = parseTime(connectedAt)
	}
	return u, nil
}
