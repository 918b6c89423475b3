// Package prompt renders the natural-language recommendation prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

// RecommendationCount is the number of records demanded from the provider.
const RecommendationCount = 5

const (
	tasteHintGenres    = 5  // top genres named in the listener profile block
	comfortArtistLimit = 15 // known artists listed in the comfort-zone sentence
)

// Source is a music discovery source named in the prompt's resources
// section.
type Source struct {
	Name        string
	Description string
}

// Build renders the provider prompt. Pure and deterministic: identical
// inputs (including set-equal exclusions) produce byte-identical output.
// tasteCtx may be nil; trendingText is inserted verbatim when non-empty.
func Build(
	prefs *preference.Set,
	exclusions map[string]struct{},
	tasteCtx *taste.Context,
	trendingText string,
	sources []Source,
) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a music discovery assistant. Based on the user's preferences, recommend %d bands or artists that match their criteria.\n\n", RecommendationCount)

	b.WriteString("USER PREFERENCES:\n")
	if prefs.TimeOfDay != "" {
		fmt.Fprintf(&b, "- Time of Day: %s\n", prefs.TimeOfDay)
	}
	if prefs.Mood != "" {
		fmt.Fprintf(&b, "- Mood: %s\n", prefs.Mood)
	}
	if prefs.Interest != "" {
		fmt.Fprintf(&b, "- Current Interest: %s\n", prefs.Interest)
	}
	fmt.Fprintf(&b, "- Tempo: %d/100 (0=very slow, 100=very fast)\n", prefs.Tempo)
	if len(prefs.InstrumentsYes) > 0 {
		fmt.Fprintf(&b, "- Instruments that SHOULD be present: %s\n", strings.Join(prefs.InstrumentsYes, ", "))
	}
	if len(prefs.InstrumentsNo) > 0 {
		fmt.Fprintf(&b, "- Instruments that should NOT be present: %s\n", strings.Join(prefs.InstrumentsNo, ", "))
	}
	if len(prefs.Genres) > 0 {
		fmt.Fprintf(&b, "- Genres: %s\n", strings.Join(prefs.Genres, ", "))
	} else {
		b.WriteString("- Genres: Any genre is fine\n")
	}

	// Taste-derived hints yield to explicitly chosen genres.
	if tasteCtx != nil && !prefs.UserSetGenres() {
		b.WriteString("\nLISTENER PROFILE (from their streaming history):\n")
		genres := tasteCtx.TopGenres
		if len(genres) > tasteHintGenres {
			genres = genres[:tasteHintGenres]
		}
		if len(genres) > 0 {
			fmt.Fprintf(&b, "- Top genres: %s\n", strings.Join(genres, ", "))
		}
		fmt.Fprintf(&b, "- Known artists: %d\n", tasteCtx.ArtistCount)
	}

	b.WriteString("\n")
	b.WriteString(discoverySentence(prefs.DiscoveryLevel, tasteCtx))
	b.WriteString("\n")

	if trendingText != "" {
		b.WriteString("\nCURRENTLY TRENDING:\n")
		b.WriteString(trendingText)
		b.WriteString("\n")
	}

	b.WriteString("\nRESOURCES TO RESEARCH FROM:\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}

	if len(exclusions) > 0 {
		names := make([]string, 0, len(exclusions))
		for name := range exclusions {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\nIMPORTANT: DO NOT suggest any of these bands: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, `
IMPORTANT: Return ONLY a valid JSON array with exactly this structure:
[
    {
        "band_name": "Band Name",
        "genre": "Genre(s)",
        "description": "Brief description of the band",
        "match_reason": "Why this matches the user's preferences"
    }
]

Return %d recommendations. Make sure the response is ONLY valid JSON, no other text.
`, RecommendationCount)

	return b.String()
}

// discoverySentence renders the single discovery-mode instruction for
// the resolved policy.
func discoverySentence(level int, tasteCtx *taste.Context) string {
	policy := preference.ResolveDiscoveryLevel(level)
	switch {
	case policy.IncludeKnown:
		if tasteCtx != nil && len(tasteCtx.KnownArtists) > 0 {
			known := tasteCtx.KnownArtists
			if len(known) > comfortArtistLimit {
				known = known[:comfortArtistLimit]
			}
			return fmt.Sprintf("DISCOVERY MODE (%s): favor artists the user already loves or artists very close to them, such as: %s.", policy.Label, strings.Join(known, ", "))
		}
		return fmt.Sprintf("DISCOVERY MODE (%s): favor familiar, well-established artists close to the user's stated preferences.", policy.Label)
	case policy.ExcludeKnown == preference.ExcludeAllKnown:
		return fmt.Sprintf("DISCOVERY MODE (%s): suggest only artists the user has never listened to before.", policy.Label)
	default:
		return fmt.Sprintf("DISCOVERY MODE (%s): blend fresh discoveries with artists adjacent to the user's existing taste.", policy.Label)
	}
}
