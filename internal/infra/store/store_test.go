package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), name, "")
	require.NoError(t, err)
	return id
}

func mustInsertSuggestion(t *testing.T, s *Store, userID int64, band string) int64 {
	t.Helper()
	id, err := s.InsertSuggestion(context.Background(), userID,
		suggestion.Parsed{BandName: band, Genre: "rock"}, []string{"Reddit r/listentothis"})
	require.NoError(t, err)
	return id
}

// backdateFeedback rewrites a feedback row's timestamp so window
// queries can be exercised without sleeping.
func backdateFeedback(t *testing.T, s *Store, suggestionID int64, age time.Duration) {
	t.Helper()
	_, err := s.db.Exec(`UPDATE user_feedback SET created_at = ? WHERE suggestion_id = ?`,
		formatTime(time.Now().Add(-age)), suggestionID)
	require.NoError(t, err)
}

func TestOpenRunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var version int
	err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)

	// Reopening the same file must be a no-op.
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s1.Close())
	s2, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestEnsureDefaultUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.EnsureDefaultUser(ctx)
	require.NoError(t, err)

	u, err := s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserName, u.Name)
	assert.Equal(t, "#2980b9", u.AvatarColor)

	// Second call returns the existing profile.
	again, err := s.EnsureDefaultUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID := mustCreateUser(t, s, "Alice")
	sugID := mustInsertSuggestion(t, s, userID, "Wet Leg")
	require.NoError(t, s.UpsertFeedback(ctx, sugID, userID, suggestion.FeedbackPositive))

	require.NoError(t, s.DeleteUser(ctx, userID))

	_, err := s.UserByID(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.SuggestionByID(ctx, sugID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, userID), ErrNotFound)
}

func TestUpsertFeedbackOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID := mustCreateUser(t, s, "Alice")
	sugID := mustInsertSuggestion(t, s, userID, "Khruangbin")

	require.NoError(t, s.UpsertFeedback(ctx, sugID, userID, suggestion.FeedbackSkipped))
	require.NoError(t, s.UpsertFeedback(ctx, sugID, userID, suggestion.FeedbackPositive))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM user_feedback WHERE suggestion_id = ?`, sugID).Scan(&count))
	assert.Equal(t, 1, count)

	history, err := s.FeedbackHistory(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "positive", history[0].FeedbackType)
}

func TestRecentlySkippedBandsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")

	recent := mustInsertSuggestion(t, s, userID, "Fresh Skip")
	require.NoError(t, s.UpsertFeedback(ctx, recent, userID, suggestion.FeedbackSkipped))

	stale := mustInsertSuggestion(t, s, userID, "Old Skip")
	require.NoError(t, s.UpsertFeedback(ctx, stale, userID, suggestion.FeedbackSkipped))
	backdateFeedback(t, s, stale, 6*24*time.Hour)

	liked := mustInsertSuggestion(t, s, userID, "Liked Band")
	require.NoError(t, s.UpsertFeedback(ctx, liked, userID, suggestion.FeedbackPositive))

	bands, err := s.RecentlySkippedBands(ctx, userID, 5*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh Skip"}, bands)
}

func TestAllRatedBands(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")
	otherID := mustCreateUser(t, s, "Bob")

	for band, fb := range map[string]suggestion.FeedbackType{
		"Band A": suggestion.FeedbackPositive,
		"Band B": suggestion.FeedbackNegative,
		"Band C": suggestion.FeedbackSaveLater,
	} {
		sugID := mustInsertSuggestion(t, s, userID, band)
		require.NoError(t, s.UpsertFeedback(ctx, sugID, userID, fb))
	}

	// Unrated suggestions and other users' feedback are excluded.
	mustInsertSuggestion(t, s, userID, "Unrated Band")
	otherSug := mustInsertSuggestion(t, s, otherID, "Other Band")
	require.NoError(t, s.UpsertFeedback(ctx, otherSug, otherID, suggestion.FeedbackPositive))

	bands, err := s.AllRatedBands(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Band A", "Band B", "Band C"}, bands)
}

func TestSavePreferencesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")
	sugID := mustInsertSuggestion(t, s, userID, "Beach House")

	prefs := &preference.Set{
		TimeOfDay:      "evening",
		Mood:           "mellow",
		Tempo:          40,
		Genres:         []string{"dream pop", "shoegaze"},
		DiscoverNew:    true,
		DiscoveryLevel: 2,
	}
	require.NoError(t, s.SavePreferences(ctx, sugID, prefs))

	var genres string
	var level int
	require.NoError(t, s.db.QueryRow(
		`SELECT genres, discovery_level FROM user_preferences WHERE suggestion_id = ?`, sugID).
		Scan(&genres, &level))
	assert.Equal(t, "dream pop, shoegaze", genres)
	assert.Equal(t, 2, level)
}

func TestSourceOverrides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedDefaultSources(ctx, []SeedSource{
		{Name: "Reddit r/listentothis", URL: "https://reddit.com/r/listentothis", Enabled: true},
		{Name: "Bandcamp Daily", URL: "https://daily.bandcamp.com", Enabled: true},
	}))
	// Seeding twice must not duplicate or reset flags.
	require.NoError(t, s.SeedDefaultSources(ctx, []SeedSource{
		{Name: "Reddit r/listentothis"},
	}))

	alice := mustCreateUser(t, s, "Alice")
	bob := mustCreateUser(t, s, "Bob")

	sources, err := s.SourcesForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.True(t, sources[0].Enabled)

	// Alice disables one source; Bob's view is unaffected.
	require.NoError(t, s.SetUserSourceEnabled(ctx, alice, sources[0].ID, false))

	enabled, err := s.EnabledSourcesForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "Bandcamp Daily", enabled[0].Name)

	bobEnabled, err := s.EnabledSourcesForUser(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, bobEnabled, 2)

	// Re-enable overwrites the override row.
	require.NoError(t, s.SetUserSourceEnabled(ctx, alice, sources[0].ID, true))
	enabled, err = s.EnabledSourcesForUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	assert.ErrorIs(t, s.SetUserSourceEnabled(ctx, alice, 9999, false), ErrNotFound)
}

func TestAddAndDeleteSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddSource(ctx, "KEXP Song of the Day", "https://kexp.org", "radio picks")
	require.NoError(t, err)

	sources, err := s.SourcesForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "KEXP Song of the Day", sources[0].Name)

	require.NoError(t, s.DeleteSource(ctx, id))
	assert.ErrorIs(t, s.DeleteSource(ctx, id), ErrNotFound)

	_, err = s.AddSource(ctx, "", "", "")
	assert.Error(t, err)
}

func TestPlaylistsAndSavedForLater(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")

	sugA := mustInsertSuggestion(t, s, userID, "Band A")
	sugB := mustInsertSuggestion(t, s, userID, "Band B")
	require.NoError(t, s.UpsertFeedback(ctx, sugA, userID, suggestion.FeedbackSaveLater))
	require.NoError(t, s.UpsertFeedback(ctx, sugB, userID, suggestion.FeedbackSaveLater))

	saved, err := s.SavedForLater(ctx, userID)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	playlistID, err := s.SavePlaylist(ctx, Playlist{
		UserID:    userID,
		Name:      "DailyJams Export",
		SpotifyID: "pl123",
	}, []PlaylistTrack{{SuggestionID: sugA, TrackCount: 3}})
	require.NoError(t, err)

	playlists, err := s.Playlists(ctx, userID)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, playlistID, playlists[0].ID)
	assert.Equal(t, 1, playlists[0].BandCount)
	assert.Equal(t, 3, playlists[0].TrackCount)

	// Band A is now exported: dropped from export candidates, present
	// in the annotation sets.
	saved, err = s.SavedForLater(ctx, userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Band B", saved[0].BandName)

	bands, err := s.BandsInPlaylists(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, bands, "Band A")
	assert.NotContains(t, bands, "Band B")

	ids, err := s.SuggestionsInPlaylists(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, ids, sugA)

	// Adding Band B to the existing playlist bumps counts; re-adding is
	// a no-op.
	require.NoError(t, s.AddPlaylistSuggestion(ctx, playlistID, sugB, 2))
	require.NoError(t, s.AddPlaylistSuggestion(ctx, playlistID, sugB, 2))

	playlists, err = s.Playlists(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, playlists[0].BandCount)
	assert.Equal(t, 5, playlists[0].TrackCount)

	assert.ErrorIs(t, s.AddPlaylistSuggestion(ctx, 9999, sugA, 1), ErrNotFound)
}

func TestTasteDataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")

	// Never synced.
	raw, err := s.TasteData(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, raw)

	status, err := s.TasteSyncStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.Synced)

	syncedAt := time.Now().UTC().Truncate(time.Second)
	in := &taste.RawData{
		TopArtists: map[string][]taste.ArtistRecord{
			taste.RangeShortTerm: {{Name: "Wet Leg", Genres: []string{"indie rock"}}},
			taste.RangeLongTerm:  {{Name: "Beach House", Genres: []string{"dream pop"}}},
		},
		FollowedArtists:   []taste.ArtistRecord{{Name: "Khruangbin", Genres: []string{"funk"}}},
		SavedTrackArtists: []taste.ArtistRecord{{Name: "Wet Leg", Genres: []string{"indie rock"}}},
		SyncedAt:          syncedAt,
	}
	require.NoError(t, s.SaveTasteData(ctx, userID, in))

	out, err := s.TasteData(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.TopArtists, out.TopArtists)
	assert.Equal(t, in.FollowedArtists, out.FollowedArtists)
	assert.Equal(t, in.SavedTrackArtists, out.SavedTrackArtists)
	assert.True(t, syncedAt.Equal(out.SyncedAt))

	status, err = s.TasteSyncStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Synced)
	assert.Equal(t, 3, status.ArtistCount)

	// A second sync replaces, not appends.
	in2 := &taste.RawData{
		TopArtists: map[string][]taste.ArtistRecord{
			taste.RangeShortTerm: {{Name: "Fontaines D.C."}},
		},
		SyncedAt: syncedAt.Add(time.Hour),
	}
	require.NoError(t, s.SaveTasteData(ctx, userID, in2))

	out, err = s.TasteData(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, out.TopArtists, 1)
	assert.Empty(t, out.FollowedArtists)
}

func TestSpotifyAuthLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := mustCreateUser(t, s, "Alice")

	_, err := s.SpotifyAuthByUser(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, s.SaveSpotifyAuth(ctx, SpotifyAuth{
		UserID:       userID,
		SpotifyID:    "spotify:alice",
		DisplayName:  "Alice",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
	}))

	auth, err := s.SpotifyAuthByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "refresh", auth.RefreshToken)
	assert.True(t, expires.Equal(auth.ExpiresAt))

	// Disconnect drops credentials and synced taste data together.
	require.NoError(t, s.SaveTasteData(ctx, userID, &taste.RawData{
		TopArtists: map[string][]taste.ArtistRecord{taste.RangeShortTerm: {{Name: "X Ambassadors"}}},
		SyncedAt:   time.Now(),
	}))
	require.NoError(t, s.ClearSpotifyAuth(ctx, userID))

	_, err = s.SpotifyAuthByUser(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)
	raw, err := s.TasteData(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, raw)

	assert.ErrorIs(t, s.SaveSpotifyAuth(ctx, SpotifyAuth{UserID: 9999}), ErrNotFound)
}
