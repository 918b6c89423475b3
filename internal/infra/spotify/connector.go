package spotify

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/dailyjams/dailyjams/internal/infra/store"
)

// TokenStore loads and saves per-user Spotify credentials.
type TokenStore interface {
	SpotifyAuthByUser(ctx context.Context, userID int64) (*store.SpotifyAuth, error)
	SaveSpotifyAuth(ctx context.Context, auth store.SpotifyAuth) error
}

// Connector builds per-user clients from stored tokens.
type Connector struct {
	cfg    Config
	tokens TokenStore
}

// NewConnector creates a Connector. The application credentials are
// shared; tokens are per user.
func NewConnector(cfg Config, tokens TokenStore) *Connector {
	return &Connector{cfg: cfg, tokens: tokens}
}

// Connect stores freshly exchanged tokens on the profile and returns
// the account they belong to.
func (c *Connector) Connect(ctx context.Context, userID int64, token *oauth2.Token) (*UserProfile, error) {
	client, err := New(ctx, c.cfg, token)
	if err != nil {
		return nil, err
	}
	profile, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.tokens.SaveSpotifyAuth(ctx, store.SpotifyAuth{
		UserID:       userID,
		SpotifyID:    profile.ID,
		DisplayName:  profile.DisplayName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}); err != nil {
		return nil, err
	}
	return profile, nil
}

// ClientFor returns a client bound to the user's stored tokens.
// Returns store.ErrNotFound when the user never connected.
func (c *Connector) ClientFor(ctx context.Context, userID int64) (*Client, error) {
	auth, err := c.tokens.SpotifyAuthByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		Expiry:       auth.ExpiresAt,
	}
	client, err := New(ctx, c.cfg, token)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build client for user %d", userID)
	}
	return client, nil
}

// ArtistImageURL resolves an artist image for annotation. Best effort:
// unconnected users and lookup failures yield "".
func (c *Connector) ArtistImageURL(ctx context.Context, userID int64, bandName string) string {
	client, err := c.ClientFor(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zlog.Debug().Err(err).Int64("user_id", userID).Msg("artist image: no client")
		}
		return ""
	}

	info, err := client.SearchArtist(ctx, bandName)
	if err != nil {
		zlog.Debug().Err(err).Str("band", bandName).Msg("artist image: search failed")
		return ""
	}
	if info == nil {
		return ""
	}
	return info.ImageURL
}
