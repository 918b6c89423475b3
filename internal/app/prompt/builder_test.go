package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

var testSources = []Source{
	{Name: "Reddit - r/Music", Description: "General music discussions"},
	{Name: "Bandcamp", Description: "Independent artists"},
}

func basePrefs() *preference.Set {
	return &preference.Set{
		TimeOfDay:      "Morning",
		Mood:           "energetic",
		Tempo:          75,
		Genres:         []string{"rock", "indie"},
		DiscoveryLevel: 3,
	}
}

func TestBuildDeterministic(t *testing.T) {
	exclusions := map[string]struct{}{"Oasis": {}, "Blur": {}, "Pulp": {}}
	tc := &taste.Context{KnownArtists: []string{"A", "B"}, TopGenres: []string{"rock"}, ArtistCount: 2}

	first := Build(basePrefs(), exclusions, tc, "1. Artist One\n2. Artist Two", testSources)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Build(basePrefs(), exclusions, tc, "1. Artist One\n2. Artist Two", testSources))
	}
}

func TestBuildOmitsEmptyPreferenceLines(t *testing.T) {
	prefs := &preference.Set{Tempo: 40, DiscoveryLevel: 3}
	out := Build(prefs, nil, nil, "", testSources)

	assert.NotContains(t, out, "Time of Day")
	assert.NotContains(t, out, "Mood:")
	assert.NotContains(t, out, "Current Interest")
	assert.NotContains(t, out, "SHOULD be present")
	assert.NotContains(t, out, "should NOT be present")
	// Tempo is always emitted
	assert.Contains(t, out, "- Tempo: 40/100")
}

func TestBuildAnyGenreMarker(t *testing.T) {
	prefs := basePrefs()
	prefs.Genres = nil
	out := Build(prefs, nil, nil, "", testSources)
	assert.Contains(t, out, "- Genres: Any genre is fine")

	out = Build(basePrefs(), nil, nil, "", testSources)
	assert.Contains(t, out, "- Genres: rock, indie")
	assert.NotContains(t, out, "Any genre is fine")
}

func TestBuildTasteHintSuppressedByExplicitGenres(t *testing.T) {
	tc := &taste.Context{
		KnownArtists: []string{"A"},
		TopGenres:    []string{"shoegaze", "dream pop", "post-rock", "ambient", "idm", "jazz"},
		ArtistCount:  120,
	}

	// Explicit genres: hint block suppressed
	out := Build(basePrefs(), nil, tc, "", testSources)
	assert.NotContains(t, out, "LISTENER PROFILE")

	// No explicit genres: hint block with top 5 genres and artist count
	prefs := basePrefs()
	prefs.Genres = nil
	out = Build(prefs, nil, tc, "", testSources)
	assert.Contains(t, out, "LISTENER PROFILE")
	assert.Contains(t, out, "- Top genres: shoegaze, dream pop, post-rock, ambient, idm")
	assert.NotContains(t, out, "jazz")
	assert.Contains(t, out, "- Known artists: 120")
}

func TestBuildDiscoverySentences(t *testing.T) {
	tc := &taste.Context{KnownArtists: []string{"X", "Y"}, ArtistCount: 2}

	out := Build(&preference.Set{DiscoveryLevel: 1}, nil, tc, "", testSources)
	assert.Contains(t, out, "DISCOVERY MODE (Pure Discovery)")
	assert.Contains(t, out, "never listened to before")

	out = Build(&preference.Set{DiscoveryLevel: 3}, nil, tc, "", testSources)
	assert.Contains(t, out, "DISCOVERY MODE (Balanced Mix)")

	out = Build(&preference.Set{DiscoveryLevel: 5}, nil, tc, "", testSources)
	assert.Contains(t, out, "DISCOVERY MODE (Comfort Zone)")
	assert.Contains(t, out, "such as: X, Y")

	// Exactly one discovery-mode sentence
	assert.Equal(t, 1, strings.Count(out, "DISCOVERY MODE"))
}

func TestBuildComfortZoneArtistCap(t *testing.T) {
	known := make([]string, 30)
	for i := range known {
		known[i] = fmt.Sprintf("Artist%02d", i)
	}
	tc := &taste.Context{KnownArtists: known, ArtistCount: len(known)}

	out := Build(&preference.Set{DiscoveryLevel: 5}, nil, tc, "", testSources)
	assert.Contains(t, out, "Artist00, Artist01")
	assert.Contains(t, out, known[comfortArtistLimit-1])
	assert.NotContains(t, out, known[comfortArtistLimit])
}

func TestBuildTrendingSection(t *testing.T) {
	out := Build(basePrefs(), nil, nil, "", testSources)
	assert.NotContains(t, out, "CURRENTLY TRENDING")

	out = Build(basePrefs(), nil, nil, "Fontaines D.C., Wet Leg", testSources)
	assert.Contains(t, out, "CURRENTLY TRENDING:\nFontaines D.C., Wet Leg\n")
}

func TestBuildResourcesInOrder(t *testing.T) {
	out := Build(basePrefs(), nil, nil, "", testSources)
	assert.Contains(t, out, "RESOURCES TO RESEARCH FROM:\n- Reddit - r/Music: General music discussions\n- Bandcamp: Independent artists\n")
}

func TestBuildExclusionLine(t *testing.T) {
	out := Build(basePrefs(), nil, nil, "", testSources)
	assert.NotContains(t, out, "DO NOT suggest")

	exclusions := map[string]struct{}{"Pulp": {}, "Blur": {}}
	out = Build(basePrefs(), exclusions, nil, "", testSources)
	// Sorted for determinism
	assert.Contains(t, out, "IMPORTANT: DO NOT suggest any of these bands: Blur, Pulp")
}

func TestBuildInstructionBlock(t *testing.T) {
	out := Build(basePrefs(), nil, nil, "", testSources)
	assert.Contains(t, out, "Return ONLY a valid JSON array")
	assert.Contains(t, out, `"band_name"`)
	assert.Contains(t, out, `"match_reason"`)
	assert.Contains(t, out, "Return 5 recommendations")
	assert.True(t, strings.HasSuffix(out, "no other text.\n"))
}
