// Package spotify provides OAuth plumbing and a per-user client for
// taste syncing and playlist export.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

const pageLimit = 50

// Config represents Spotify application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Market       string
}

// Auth handles the authorization-code flow for connecting a profile.
type Auth struct {
	auth *spotifyauth.Authenticator
}

// NewAuth creates the OAuth helper.
func NewAuth(cfg Config) (*Auth, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}
	return &Auth{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.RedirectURL),
			spotifyauth.WithScopes(
				spotifyauth.ScopeUserTopRead,
				spotifyauth.ScopeUserFollowRead,
				spotifyauth.ScopeUserLibraryRead,
				spotifyauth.ScopePlaylistModifyPublic,
				spotifyauth.ScopePlaylistModifyPrivate,
			),
		),
	}, nil
}

// AuthURL returns the consent page URL for the given CSRF state.
func (a *Auth) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange trades an authorization code for tokens.
func (a *Auth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.auth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}
	return token, nil
}

// Client is a Spotify API client bound to one user's tokens.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// New creates a client from stored tokens. The refresh token keeps the
// client usable after the access token expires.
func New(ctx context.Context, cfg Config, token *oauth2.Token) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}
	if token == nil || token.RefreshToken == "" {
		return nil, errors.New("spotify refresh token is required")
	}

	a, err := NewAuth(cfg)
	if err != nil {
		return nil, err
	}

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Client{
		client:     spotify.New(a.auth.Client(ctx, token)),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// UserProfile identifies the connected Spotify account.
type UserProfile struct {
	ID          string
	DisplayName string
}

// CurrentUser returns the account the tokens belong to.
func (c *Client) CurrentUser(ctx context.Context) (*UserProfile, error) {
	var user *spotify.PrivateUser
	err := c.retry(func() error {
		u, err := c.client.CurrentUser(ctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current user")
	}
	return &UserProfile{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// FetchTasteData pulls the user's listening history: top artists across
// the three time ranges, followed artists, and the artists behind saved
// tracks.
func (c *Client) FetchTasteData(ctx context.Context) (*taste.RawData, error) {
	raw := &taste.RawData{
		TopArtists: make(map[string][]taste.ArtistRecord),
		SyncedAt:   time.Now().UTC(),
	}

	ranges := map[string]spotify.Range{
		taste.RangeShortTerm:  spotify.ShortTermRange,
		taste.RangeMediumTerm: spotify.MediumTermRange,
		taste.RangeLongTerm:   spotify.LongTermRange,
	}
	for name, tr := range ranges {
		var page *spotify.FullArtistPage
		err := c.retry(func() error {
			p, err := c.client.CurrentUsersTopArtists(ctx, spotify.Timerange(tr), spotify.Limit(pageLimit))
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get top artists (%s)", name)
		}
		raw.TopArtists[name] = convertArtists(page.Artists)
	}

	var followed *spotify.FullArtistCursorPage
	err := c.retry(func() error {
		p, err := c.client.CurrentUsersFollowedArtists(ctx, spotify.Limit(pageLimit))
		if err != nil {
			return err
		}
		followed = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get followed artists")
	}
	raw.FollowedArtists = convertArtists(followed.Artists)

	var saved *spotify.SavedTrackPage
	err = c.retry(func() error {
		p, err := c.client.CurrentUsersTracks(ctx, spotify.Limit(pageLimit))
		if err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saved tracks")
	}
	for _, item := range saved.Tracks {
		for _, a := range item.Artists {
			// Track-level artist objects carry no genres.
			raw.SavedTrackArtists = append(raw.SavedTrackArtists, taste.ArtistRecord{Name: a.Name})
		}
	}

	return raw, nil
}

// ArtistInfo is the search result used for image annotation and track
// lookup.
type ArtistInfo struct {
	ID       string
	Name     string
	ImageURL string
}

// SearchArtist returns the best artist match for a name, or nil when
// nothing matches.
func (c *Client) SearchArtist(ctx context.Context, name string) (*ArtistInfo, error) {
	if name == "" {
		return nil, errors.New("artist name is required")
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, name, spotify.SearchTypeArtist, spotify.Limit(1))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search artist")
	}

	if result.Artists == nil || len(result.Artists.Artists) == 0 {
		return nil, nil
	}
	a := result.Artists.Artists[0]

	info := &ArtistInfo{ID: string(a.ID), Name: a.Name}
	if len(a.Images) > 0 {
		info.ImageURL = a.Images[0].URL
	}
	return info, nil
}

// TrackInfo is one playlist-export candidate track.
type TrackInfo struct {
	ID   string
	Name string
}

// ArtistTopTracks returns up to limit of the artist's top tracks in the
// configured market.
func (c *Client) ArtistTopTracks(ctx context.Context, artistID string, limit int) ([]TrackInfo, error) {
	if limit <= 0 {
		limit = 3
	}

	var tracks []spotify.FullTrack
	err := c.retry(func() error {
		ts, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.market)
		if err != nil {
			return err
		}
		tracks = ts
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist top tracks")
	}

	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	out := make([]TrackInfo, len(tracks))
	for i, t := range tracks {
		out[i] = TrackInfo{ID: string(t.ID), Name: t.Name}
	}
	return out, nil
}

// CreatePlaylist creates a public playlist on the user's account and
// returns its id and web URL.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (string, string, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to get current user")
	}

	var playlist *spotify.FullPlaylist
	err = c.retry(func() error {
		p, err := c.client.CreatePlaylistForUser(ctx, user.ID, name, description, true, false)
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to create playlist")
	}

	id := string(playlist.ID)
	return id, PlaylistURL(id), nil
}

// AddTracksToPlaylist adds tracks to a playlist in API-sized batches.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	// Spotify allows max 100 tracks per request
	for i := 0; i < len(ids); i += 100 {
		end := i + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		err := c.retry(func() error {
			_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "failed to add tracks to playlist")
		}
	}

	return nil
}

// PlaylistURL returns the Spotify web URL for a playlist.
func PlaylistURL(playlistID string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", playlistID)
}

func convertArtists(artists []spotify.FullArtist) []taste.ArtistRecord {
	out := make([]taste.ArtistRecord, len(artists))
	for i, a := range artists {
		out[i] = taste.ArtistRecord{Name: a.Name, Genres: a.Genres}
	}
	return out
}

// retry retries an operation with exponential backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
