package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingBody(titles ...string) string {
	children := make([]string, len(titles))
	for i, title := range titles {
		children[i] = fmt.Sprintf(`{"data": {"title": %q}}`, title)
	}
	return fmt.Sprintf(`{"data": {"children": [%s]}}`, strings.Join(children, ","))
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc, settings map[string]any) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if settings == nil {
		settings = map[string]any{}
	}
	settings["base_url"] = srv.URL

	f, err := NewFromSettings(settings)
	require.NoError(t, err)
	return f
}

func TestFetchTrendingNames(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/listentothis/new.json", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "dailyjams")
		w.Write([]byte(listingBody(
			"Wet Leg - Chaise Longue [indie rock] (2021)",
			"Fontaines D.C. - Jackie Down the Line [post-punk]",
			"no delimiter in this title",
			"Wet Leg - Wet Dream [indie rock]",
		)))
	}, nil)

	names := f.FetchTrendingNames(context.Background())
	assert.Equal(t, []string{"Wet Leg", "Fontaines D.C."}, names)
}

func TestFetchTrendingNamesStripsBracketTags(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingBody("[FRESH] Big Thief - Simulation Swarm [folk rock]")))
	}, nil)

	names := f.FetchTrendingNames(context.Background())
	assert.Equal(t, []string{"Big Thief"}, names)
}

func TestFetchTrendingNamesLengthBounds(t *testing.T) {
	tooLong := strings.Repeat("x", 51)
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingBody(
			"M - single letter artist [pop]",
			tooLong+" - some song [rock]",
			"OK - short but fine [punk]",
		)))
	}, nil)

	names := f.FetchTrendingNames(context.Background())
	assert.Equal(t, []string{"OK"}, names)
}

func TestFetchTrendingNamesCap(t *testing.T) {
	titles := make([]string, 20)
	for i := range titles {
		titles[i] = fmt.Sprintf("Artist %02d - Song [genre]", i)
	}
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingBody(titles...)))
	}, map[string]any{"max_names": 5})

	names := f.FetchTrendingNames(context.Background())
	assert.Len(t, names, 5)
}

func TestFetchTrendingNamesFailuresAreSilent(t *testing.T) {
	// Non-200 response
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, nil)
	assert.Empty(t, f.FetchTrendingNames(context.Background()))

	// Malformed payload
	f = newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}, nil)
	assert.Empty(t, f.FetchTrendingNames(context.Background()))

	// Unreachable server
	f, err := NewFromSettings(map[string]any{"base_url": "http://127.0.0.1:1", "timeout_sec": 1})
	require.NoError(t, err)
	assert.Empty(t, f.FetchTrendingNames(context.Background()))
}

func TestNewFromSettingsDefaults(t *testing.T) {
	f, err := NewFromSettings(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "listentothis", f.config.Subreddit)
	assert.Equal(t, 12, f.config.MaxNames)

	_, err = NewFromSettings(map[string]any{"max_names": 500})
	assert.Error(t, err)
}

func TestExtractArtistName(t *testing.T) {
	tests := []struct {
		title string
		want  string
		ok    bool
	}{
		{"Khruangbin - Time (You and I) [funk] (2020)", "Khruangbin", true},
		{"[FRESH ALBUM] Beach House - Once Twice Melody", "Beach House", true},
		{"just a discussion thread", "", false},
		{"  - empty left side [rock]", "", false},
	}

	for _, tt := range tests {
		got, ok := extractArtistName(tt.title)
		assert.Equal(t, tt.ok, ok, tt.title)
		assert.Equal(t, tt.want, got, tt.title)
	}
}
