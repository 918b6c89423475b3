package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyjams/dailyjams/internal/app/exclusion"
	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

type mockLedger struct {
	sources       []store.Source
	sourcesErr    error
	tasteRaw      *taste.RawData
	skipped       []string
	rated         []string
	playlistBands map[string]struct{}

	insertErr   error
	insertCalls []suggestion.Parsed
	prefsCalls  []int64
	feedback    map[int64]suggestion.FeedbackType
	suggestions map[int64]*suggestion.Suggestion
	nextID      int64
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		feedback:    make(map[int64]suggestion.FeedbackType),
		suggestions: make(map[int64]*suggestion.Suggestion),
	}
}

func (m *mockLedger) EnabledSourcesForUser(ctx context.Context, userID int64) ([]store.Source, error) {
	return m.sources, m.sourcesErr
}

func (m *mockLedger) TasteData(ctx context.Context, userID int64) (*taste.RawData, error) {
	return m.tasteRaw, nil
}

func (m *mockLedger) InsertSuggestion(ctx context.Context, userID int64, rec suggestion.Parsed, sourcesUsed []string) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.insertCalls = append(m.insertCalls, rec)
	m.nextID++
	return m.nextID, nil
}

func (m *mockLedger) SavePreferences(ctx context.Context, suggestionID int64, prefs *preference.Set) error {
	m.prefsCalls = append(m.prefsCalls, suggestionID)
	return nil
}

func (m *mockLedger) UpsertFeedback(ctx context.Context, suggestionID, userID int64, feedbackType suggestion.FeedbackType) error {
	m.feedback[suggestionID] = feedbackType
	return nil
}

func (m *mockLedger) SuggestionByID(ctx context.Context, id int64) (*suggestion.Suggestion, error) {
	sg, ok := m.suggestions[id]
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "suggestion %d", id)
	}
	return sg, nil
}

func (m *mockLedger) BandsInPlaylists(ctx context.Context, userID int64) (map[string]struct{}, error) {
	return m.playlistBands, nil
}

type mockProvider struct {
	records    []suggestion.Parsed
	lastPrompt string
}

func (m *mockProvider) FetchRecommendations(ctx context.Context, promptText string) []suggestion.Parsed {
	m.lastPrompt = promptText
	return m.records
}

type mockTrends struct {
	names  []string
	called bool
}

func (m *mockTrends) FetchTrendingNames(ctx context.Context) []string {
	m.called = true
	return m.names
}

type mockImages struct{ urls map[string]string }

func (m *mockImages) ArtistImageURL(ctx context.Context, userID int64, bandName string) string {
	return m.urls[bandName]
}

func fiveParsed() []suggestion.Parsed {
	return []suggestion.Parsed{
		{BandName: "Wet Leg", Genre: "indie rock", Description: "d", MatchReason: "r"},
		{BandName: "Khruangbin", Genre: "funk", Description: "d", MatchReason: "r"},
		{BandName: "Beach House", Genre: "dream pop", Description: "d", MatchReason: "r"},
		{BandName: "Fontaines D.C.", Genre: "post-punk", Description: "d", MatchReason: "r"},
		{BandName: "Big Thief", Genre: "folk rock", Description: "d", MatchReason: "r"},
	}
}

func newService(ledger *mockLedger, provider *mockProvider, trends TrendFetcher, images ImageFinder) *Service {
	agg := exclusion.NewAggregator(ledgerFeedback{ledger}, 5)
	return New(ledger, agg, provider, trends, images)
}

// ledgerFeedback adapts the mock to the aggregator interface without
// widening the mock's method set.
type ledgerFeedback struct{ m *mockLedger }

func (l ledgerFeedback) RecentlySkippedBands(ctx context.Context, userID int64, window time.Duration) ([]string, error) {
	return l.m.skipped, nil
}

func (l ledgerFeedback) AllRatedBands(ctx context.Context, userID int64) ([]string, error) {
	return l.m.rated, nil
}

func TestRecommendPipeline(t *testing.T) {
	ledger := newMockLedger()
	ledger.sources = []store.Source{
		{Name: "Reddit r/listentothis", Description: "community picks"},
		{Name: "Bandcamp Daily", URL: "https://daily.bandcamp.com"},
	}
	ledger.skipped = []string{"Skipped Band"}
	ledger.playlistBands = map[string]struct{}{"Khruangbin": {}}

	provider := &mockProvider{records: fiveParsed()}
	images := &mockImages{urls: map[string]string{"Wet Leg": "https://img/wetleg.jpg"}}

	svc := newService(ledger, provider, nil, images)
	prefs := &preference.Set{Mood: "upbeat", Tempo: 3, DiscoveryLevel: 3}

	recs, err := svc.Recommend(context.Background(), 1, prefs, []string{"Session Band"})
	require.NoError(t, err)
	require.Len(t, recs, 5)

	// Legacy tempo dial normalized before the prompt renders.
	assert.Contains(t, provider.lastPrompt, "Tempo: 60/100")
	assert.Contains(t, provider.lastPrompt, "Reddit r/listentothis: community picks")
	assert.Contains(t, provider.lastPrompt, "Bandcamp Daily: https://daily.bandcamp.com")
	assert.Contains(t, provider.lastPrompt, "DO NOT suggest any of these bands: Session Band, Skipped Band")

	// All five persisted with their preference snapshots.
	assert.Len(t, ledger.insertCalls, 5)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ledger.prefsCalls)

	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, "https://img/wetleg.jpg", recs[0].ImageURL)
	assert.False(t, recs[0].InPlaylist)
	assert.True(t, recs[1].InPlaylist)
	assert.False(t, recs[0].TrendingEnabled)
}

func TestRecommendTrending(t *testing.T) {
	ledger := newMockLedger()
	provider := &mockProvider{records: fiveParsed()}
	trends := &mockTrends{names: []string{"Trend One", "Trend Two"}}

	svc := newService(ledger, provider, trends, nil)
	prefs := &preference.Set{Tempo: 50, TrendingNow: true}

	recs, err := svc.Recommend(context.Background(), 1, prefs, nil)
	require.NoError(t, err)

	assert.True(t, trends.called)
	assert.Contains(t, provider.lastPrompt, "CURRENTLY TRENDING:\n- Trend One\n- Trend Two")
	assert.True(t, recs[0].TrendingEnabled)
	assert.Equal(t, 2, recs[0].TrendingCount)
}

func TestRecommendTrendingOffSkipsFetcher(t *testing.T) {
	ledger := newMockLedger()
	provider := &mockProvider{records: fiveParsed()}
	trends := &mockTrends{names: []string{"Trend One"}}

	svc := newService(ledger, provider, trends, nil)
	_, err := svc.Recommend(context.Background(), 1, &preference.Set{Tempo: 50}, nil)
	require.NoError(t, err)

	assert.False(t, trends.called)
	assert.NotContains(t, provider.lastPrompt, "CURRENTLY TRENDING")
}

func TestRecommendSentinelNotPersisted(t *testing.T) {
	ledger := newMockLedger()
	provider := &mockProvider{records: []suggestion.Parsed{suggestion.ErrorRecord("rate limited")}}

	svc := newService(ledger, provider, nil, nil)
	recs, err := svc.Recommend(context.Background(), 1, &preference.Set{Tempo: 50}, nil)
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "Error", recs[0].BandName)
	assert.Contains(t, recs[0].Description, "rate limited")
	assert.Empty(t, ledger.insertCalls)
	assert.Empty(t, ledger.prefsCalls)
}

func TestRecommendPersistenceFailurePropagates(t *testing.T) {
	ledger := newMockLedger()
	ledger.insertErr = errors.New("disk full")
	provider := &mockProvider{records: fiveParsed()}

	svc := newService(ledger, provider, nil, nil)
	_, err := svc.Recommend(context.Background(), 1, &preference.Set{Tempo: 50}, nil)
	assert.ErrorContains(t, err, "disk full")
}

func TestRecommendSourceFailurePropagates(t *testing.T) {
	ledger := newMockLedger()
	ledger.sourcesErr = errors.New("db locked")
	provider := &mockProvider{records: fiveParsed()}

	svc := newService(ledger, provider, nil, nil)
	_, err := svc.Recommend(context.Background(), 1, &preference.Set{Tempo: 50}, nil)
	assert.ErrorContains(t, err, "db locked")
}

func TestSaveFeedback(t *testing.T) {
	ledger := newMockLedger()
	ledger.suggestions[7] = &suggestion.Suggestion{ID: 7, UserID: 1, BandName: "Wet Leg"}
	svc := newService(ledger, &mockProvider{}, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.SaveFeedback(ctx, 1, 7, "positive"))
	assert.Equal(t, suggestion.FeedbackPositive, ledger.feedback[7])

	err := svc.SaveFeedback(ctx, 1, 7, "meh")
	assert.ErrorIs(t, err, suggestion.ErrInvalidFeedbackType)

	err = svc.SaveFeedback(ctx, 1, 99, "positive")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, svc.SaveFeedback(ctx, 0, 7, "positive"))
	assert.Error(t, svc.SaveFeedback(ctx, 1, 0, "positive"))
}
