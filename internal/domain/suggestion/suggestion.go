// Package suggestion provides the Suggestion and Feedback domain entities.
package suggestion

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Suggestion represents one persisted recommendation record.
// Immutable once created.
type Suggestion struct {
	ID          int64
	UserID      int64
	BandName    string
	Genre       string
	Description string
	MatchReason string
	SourcesUsed []string // source names consulted, in order
	CreatedAt   time.Time
}

// FeedbackType classifies user feedback on a suggestion.
type FeedbackType string

const (
	FeedbackPositive  FeedbackType = "positive"
	FeedbackNegative  FeedbackType = "negative"
	FeedbackSkipped   FeedbackType = "skipped"
	FeedbackSaveLater FeedbackType = "save_later"
)

// ErrInvalidFeedbackType is returned for unknown feedback type strings.
var ErrInvalidFeedbackType = errors.New("invalid feedback type")

// ParseFeedbackType validates a raw feedback type string.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch FeedbackType(s) {
	case FeedbackPositive, FeedbackNegative, FeedbackSkipped, FeedbackSaveLater:
		return FeedbackType(s), nil
	}
	return "", errors.Wrapf(ErrInvalidFeedbackType, "%q", s)
}

// Feedback represents a user's verdict on a suggestion. At most one row
// exists per (suggestion, user) pair; a second save overwrites type and
// timestamp.
type Feedback struct {
	SuggestionID int64
	UserID       int64
	Type         FeedbackType
	CreatedAt    time.Time
}

// Recommendation is the API-facing shape returned to callers, combining
// the parsed provider record with persistence and annotation metadata.
type Recommendation struct {
	ID              int64  `json:"id"`
	BandName        string `json:"band_name"`
	Genre           string `json:"genre"`
	Description     string `json:"description"`
	MatchReason     string `json:"match_reason"`
	ImageURL        string `json:"image_url,omitempty"`
	InPlaylist      bool   `json:"in_playlist"`
	TrendingEnabled bool   `json:"trending_enabled,omitempty"`
	TrendingCount   int    `json:"trending_count,omitempty"`
}

// Parsed is a single recommendation record as extracted from the
// provider's response text.
type Parsed struct {
	BandName    string `json:"band_name"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	MatchReason string `json:"match_reason"`
}

// ErrorRecord returns the sentinel record used to carry a provider
// failure back through the normal success-shaped return path.
func ErrorRecord(reason string) Parsed {
	return Parsed{
		BandName:    "Error",
		Genre:       "N/A",
		Description: "Sorry, there was an error getting recommendations: " + reason,
		MatchReason: "N/A",
	}
}

// IsError reports whether the record is the provider-failure sentinel.
func (p Parsed) IsError() bool {
	return p.BandName == "Error" && p.MatchReason == "N/A"
}
