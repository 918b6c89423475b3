package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTempo(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"legacy dial zero", 0, 0},
		{"legacy dial mid", 3, 60},
		{"legacy dial max", 5, 100},
		{"canonical value", 75, 75},
		{"canonical max", 100, 100},
		{"above range clamped", 150, 100},
		{"negative clamped", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTempo(tt.input))
		})
	}
}

func TestUserSetGenres(t *testing.T) {
	s := &Set{}
	assert.False(t, s.UserSetGenres())

	s.Genres = []string{"rock"}
	assert.True(t, s.UserSetGenres())
}

func TestResolveDiscoveryLevel(t *testing.T) {
	for level := 1; level <= 5; level++ {
		p := ResolveDiscoveryLevel(level)
		assert.Equal(t, level, p.Level)
	}

	// Out-of-range levels behave identically to level 3
	def := ResolveDiscoveryLevel(DefaultDiscoveryLevel)
	for _, level := range []int{0, -1, 6, 100} {
		assert.Equal(t, def, ResolveDiscoveryLevel(level), "level %d", level)
	}
}

func TestDiscoveryPolicyBranches(t *testing.T) {
	// Exactly one behavior is active per level.
	for level := 1; level <= 5; level++ {
		p := ResolveDiscoveryLevel(level)
		if p.IncludeKnown {
			assert.Equal(t, 0, p.ExcludeKnown, "level %d: include and exclude are mutually exclusive", level)
		}
	}

	assert.Equal(t, ExcludeAllKnown, ResolveDiscoveryLevel(1).ExcludeKnown)
	assert.Equal(t, 20, ResolveDiscoveryLevel(3).ExcludeKnown)
	assert.True(t, ResolveDiscoveryLevel(5).IncludeKnown)
}
