// Package recommend orchestrates the recommendation pipeline: sources,
// exclusions, taste, trending, prompt, provider, and the ledger.
package recommend

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/dailyjams/dailyjams/internal/app/exclusion"
	"github.com/dailyjams/dailyjams/internal/app/prompt"
	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

// Provider produces recommendation records from a rendered prompt.
// Implementations never fail: provider problems surface as the sentinel
// error record.
type Provider interface {
	FetchRecommendations(ctx context.Context, promptText string) []suggestion.Parsed
}

// TrendFetcher supplies currently trending artist names, best effort.
type TrendFetcher interface {
	FetchTrendingNames(ctx context.Context) []string
}

// ImageFinder resolves a best-effort artist image URL for a user.
// Returns "" when no image can be found.
type ImageFinder interface {
	ArtistImageURL(ctx context.Context, userID int64, bandName string) string
}

// Ledger is the store surface the pipeline reads and writes.
type Ledger interface {
	EnabledSourcesForUser(ctx context.Context, userID int64) ([]store.Source, error)
	TasteData(ctx context.Context, userID int64) (*taste.RawData, error)
	InsertSuggestion(ctx context.Context, userID int64, rec suggestion.Parsed, sourcesUsed []string) (int64, error)
	SavePreferences(ctx context.Context, suggestionID int64, prefs *preference.Set) error
	UpsertFeedback(ctx context.Context, suggestionID, userID int64, feedbackType suggestion.FeedbackType) error
	SuggestionByID(ctx context.Context, id int64) (*suggestion.Suggestion, error)
	BandsInPlaylists(ctx context.Context, userID int64) (map[string]struct{}, error)
}

// Service runs the recommendation pipeline.
type Service struct {
	ledger     Ledger
	exclusions *exclusion.Aggregator
	provider   Provider
	trends     TrendFetcher // nil when trending is disabled
	images     ImageFinder  // nil when no streaming service is configured
}

// New creates a Service. trends and images are optional.
func New(ledger Ledger, exclusions *exclusion.Aggregator, provider Provider, trends TrendFetcher, images ImageFinder) *Service {
	return &Service{
		ledger:     ledger,
		exclusions: exclusions,
		provider:   provider,
		trends:     trends,
		images:     images,
	}
}

// Recommend runs one request through the pipeline and returns the
// persisted, annotated recommendations in provider order.
func (s *Service) Recommend(
	ctx context.Context,
	userID int64,
	prefs *preference.Set,
	sessionExclusions []string,
) ([]suggestion.Recommendation, error) {
	requestID := uuid.NewString()
	log := zlog.With().Str("request_id", requestID).Int64("user_id", userID).Logger()

	prefs.Tempo = preference.NormalizeTempo(prefs.Tempo)

	sources, err := s.ledger.EnabledSourcesForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sources")
	}

	raw, err := s.ledger.TasteData(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load taste data")
	}
	tasteCtx := taste.Build(raw)

	excluded, err := s.exclusions.Compute(ctx, userID, prefs.DiscoverNew, prefs.DiscoveryLevel, sessionExclusions, tasteCtx)
	if err != nil {
		return nil, err
	}

	var trendingNames []string
	if prefs.TrendingNow && s.trends != nil {
		trendingNames = s.trends.FetchTrendingNames(ctx)
	}

	promptText := prompt.Build(prefs, excluded, tasteCtx, trendingText(trendingNames), promptSources(sources))
	log.Debug().
		Int("exclusions", len(excluded)).
		Int("sources", len(sources)).
		Int("trending", len(trendingNames)).
		Msg("prompt built")

	records := s.provider.FetchRecommendations(ctx, promptText)

	// The sentinel rides the success path: surfaced to the caller,
	// never persisted.
	if len(records) == 1 && records[0].IsError() {
		log.Warn().Str("reason", records[0].Description).Msg("provider returned error record")
		return []suggestion.Recommendation{annotateError(records[0])}, nil
	}

	inPlaylist := s.playlistBands(ctx, userID)
	sourceNames := make([]string, len(sources))
	for i, src := range sources {
		sourceNames[i] = src.Name
	}

	out := make([]suggestion.Recommendation, 0, len(records))
	for _, rec := range records {
		id, err := s.ledger.InsertSuggestion(ctx, userID, rec, sourceNames)
		if err != nil {
			return nil, errors.Wrap(err, "failed to persist suggestion")
		}
		if err := s.ledger.SavePreferences(ctx, id, prefs); err != nil {
			return nil, errors.Wrap(err, "failed to persist preferences")
		}

		r := suggestion.Recommendation{
			ID:          id,
			BandName:    rec.BandName,
			Genre:       rec.Genre,
			Description: rec.Description,
			MatchReason: rec.MatchReason,
		}
		if _, ok := inPlaylist[rec.BandName]; ok {
			r.InPlaylist = true
		}
		if s.images != nil {
			r.ImageURL = s.images.ArtistImageURL(ctx, userID, rec.BandName)
		}
		if prefs.TrendingNow {
			r.TrendingEnabled = true
			r.TrendingCount = len(trendingNames)
		}
		out = append(out, r)
	}

	log.Info().Int("count", len(out)).Msg("recommendations ready")
	return out, nil
}

// SaveFeedback validates and records a verdict on a suggestion.
func (s *Service) SaveFeedback(ctx context.Context, userID, suggestionID int64, feedbackType string) error {
	if userID <= 0 {
		return errors.New("user id is required")
	}
	if suggestionID <= 0 {
		return errors.New("suggestion id is required")
	}
	fb, err := suggestion.ParseFeedbackType(feedbackType)
	if err != nil {
		return err
	}

	if _, err := s.ledger.SuggestionByID(ctx, suggestionID); err != nil {
		return err
	}

	return s.ledger.UpsertFeedback(ctx, suggestionID, userID, fb)
}

// playlistBands loads the annotation set. Best effort: annotations never
// fail a request.
func (s *Service) playlistBands(ctx context.Context, userID int64) map[string]struct{} {
	bands, err := s.ledger.BandsInPlaylists(ctx, userID)
	if err != nil {
		zlog.Warn().Err(err).Int64("user_id", userID).Msg("failed to load playlist bands")
		return nil
	}
	return bands
}

func trendingText(names []string) string {
	if len(names) == 0 {
		return ""
	}
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "- " + name
	}
	return strings.Join(lines, "\n")
}

func promptSources(sources []store.Source) []prompt.Source {
	out := make([]prompt.Source, len(sources))
	for i, src := range sources {
		desc := src.Description
		if desc == "" {
			desc = src.URL
		}
		out[i] = prompt.Source{Name: src.Name, Description: desc}
	}
	return out
}

func annotateError(rec suggestion.Parsed) suggestion.Recommendation {
	return suggestion.Recommendation{
		BandName:    rec.BandName,
		Genre:       rec.Genre,
		Description: rec.Description,
		MatchReason: rec.MatchReason,
	}
}
