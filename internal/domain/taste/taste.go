// Package taste provides the taste context derived from a user's
// synced streaming history.
package taste

import (
	"sort"
	"time"
)

// TopGenreCount is the maximum number of genres carried in a Context.
const TopGenreCount = 10

// Time ranges used by the top-artists collection.
const (
	RangeShortTerm  = "short_term"
	RangeMediumTerm = "medium_term"
	RangeLongTerm   = "long_term"
)

// ArtistRecord is a single artist as received from the streaming service.
type ArtistRecord struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// RawData holds a user's synced listening history. The collections are
// heterogeneous: top artists are keyed by time range, the other two are
// flat lists. A nil *RawData means the user never synced.
type RawData struct {
	TopArtists        map[string][]ArtistRecord `json:"top_artists"`
	FollowedArtists   []ArtistRecord            `json:"followed_artists"`
	SavedTrackArtists []ArtistRecord            `json:"saved_tracks"`
	SyncedAt          time.Time                 `json:"synced_at"`
}

// Context is the compact per-request summary of a user's taste.
// KnownArtists preserves encounter order: most prominent collections
// are folded first, so a prefix slice yields the most prominent names.
type Context struct {
	KnownArtists []string // deduped, encounter order, no empty strings
	TopGenres    []string // descending frequency, first-seen tiebreak, max 10
	ArtistCount  int      // len(KnownArtists)
}

// Build folds raw synced data into a Context. Returns nil when raw is
// nil (never synced); a synced-but-empty history yields an empty,
// non-nil Context. Deterministic and side-effect free.
func Build(raw *RawData) *Context {
	if raw == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var known []string
	genreCounts := make(map[string]int)
	var genreOrder []string

	fold := func(records []ArtistRecord) {
		for _, r := range records {
			if r.Name != "" {
				if _, ok := seen[r.Name]; !ok {
					seen[r.Name] = struct{}{}
					known = append(known, r.Name)
				}
			}
			for _, g := range r.Genres {
				if _, ok := genreCounts[g]; !ok {
					genreOrder = append(genreOrder, g)
				}
				genreCounts[g]++
			}
		}
	}

	// Top artists first so prefix slices of KnownArtists favor them.
	// Fixed time-range order keeps the fold deterministic.
	for _, tr := range timeRangeOrder(raw.TopArtists) {
		fold(raw.TopArtists[tr])
	}
	fold(raw.FollowedArtists)
	fold(raw.SavedTrackArtists)

	// Stable sort on count only: equal counts keep first-seen order.
	topGenres := make([]string, len(genreOrder))
	copy(topGenres, genreOrder)
	sort.SliceStable(topGenres, func(i, j int) bool {
		return genreCounts[topGenres[i]] > genreCounts[topGenres[j]]
	})
	if len(topGenres) > TopGenreCount {
		topGenres = topGenres[:TopGenreCount]
	}

	return &Context{
		KnownArtists: known,
		TopGenres:    topGenres,
		ArtistCount:  len(known),
	}
}

// timeRangeOrder returns the map keys in a fixed order: the three
// standard ranges first (short, medium, long), then any others sorted.
func timeRangeOrder(m map[string][]ArtistRecord) []string {
	var order []string
	for _, tr := range []string{RangeShortTerm, RangeMediumTerm, RangeLongTerm} {
		if _, ok := m[tr]; ok {
			order = append(order, tr)
		}
	}
	var extra []string
	for k := range m {
		switch k {
		case RangeShortTerm, RangeMediumTerm, RangeLongTerm:
		default:
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}
