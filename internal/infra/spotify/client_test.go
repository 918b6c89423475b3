package spotify

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/oauth2"

	"github.com/stretchr/testify/assert"
)

func TestNewRequiresCredentials(t *testing.T) {
	ctx := context.Background()
	token := &oauth2.Token{RefreshToken: "refresh"}

	_, err := New(ctx, Config{}, token)
	assert.Error(t, err)

	_, err = New(ctx, Config{ClientID: "id", ClientSecret: "secret"}, nil)
	assert.Error(t, err)

	_, err = New(ctx, Config{ClientID: "id", ClientSecret: "secret"}, &oauth2.Token{})
	assert.Error(t, err)

	c, err := New(ctx, Config{ClientID: "id", ClientSecret: "secret"}, token)
	assert.NoError(t, err)
	assert.Equal(t, "US", c.market)
}

func TestNewAuthRequiresCredentials(t *testing.T) {
	_, err := NewAuth(Config{ClientID: "id"})
	assert.Error(t, err)

	a, err := NewAuth(Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/callback"})
	assert.NoError(t, err)
	assert.Contains(t, a.AuthURL("state123"), "state=state123")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error",
			err:      errors.New("503 service unavailable"),
			expected: true,
		},
		{
			name:     "client error",
			err:      errors.New("404 not found"),
			expected: false,
		},
		{
			name:     "auth error",
			err:      errors.New("invalid_grant: refresh token revoked"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestPlaylistURL(t *testing.T) {
	assert.Equal(t, "https://open.spotify.com/playlist/abc123", PlaylistURL("abc123"))
}
