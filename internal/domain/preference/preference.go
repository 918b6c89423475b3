// Package preference provides the PreferenceSet domain entity.
package preference

// Set represents one recommendation request's inputs.
// Created per request; its fields are persisted denormalized alongside
// the suggestions it produced.
type Set struct {
	TimeOfDay      string   // e.g. "Morning", "Evening"; empty means unspecified
	Mood           string   // free text
	Interest       string   // free text, optional
	Tempo          int      // canonical 0-100 scale (0=very slow, 100=very fast)
	InstrumentsYes []string // instruments that should be present
	InstrumentsNo  []string // instruments that should not be present
	Genres         []string // ordered; empty means "any genre"
	TrendingNow    bool     // bias toward currently trending artists
	DiscoverNew    bool     // never repeat anything previously surfaced
	DiscoveryLevel int      // 1-5 novelty dial, see discovery.go
}

// UserSetGenres reports whether the user explicitly picked genres.
// Taste-derived genre hints are suppressed when true.
func (s *Set) UserSetGenres() bool {
	return len(s.Genres) > 0
}

// NormalizeTempo converts a caller-supplied tempo to the canonical 0-100
// scale. Values at or below 5 are treated as the legacy 0-5 dial and
// multiplied by 20. The result is clamped to [0, 100].
func NormalizeTempo(tempo int) int {
	if tempo < 0 {
		return 0
	}
	if tempo <= 5 {
		tempo *= 20
	}
	if tempo > 100 {
		return 100
	}
	return tempo
}
