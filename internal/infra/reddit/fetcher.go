// Package reddit provides a best-effort trending-artist signal scraped
// from a public subreddit feed.
package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Plausible artist-name length bounds for the title heuristic.
const (
	minNameLen = 2
	maxNameLen = 50
)

// Settings represents the trending provider settings map.
type Settings struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url" default:"https://www.reddit.com"`
	Subreddit  string `yaml:"subreddit" mapstructure:"subreddit" default:"listentothis" validate:"required"`
	MaxNames   int    `yaml:"max_names" mapstructure:"max_names" default:"12" validate:"gte=1,lte=50"`
	TimeoutSec int    `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"5" validate:"gte=1,lte=30"`
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent" default:"dailyjams/1.0 (music discovery)"`
}

// Fetcher scrapes trending artist names from a subreddit's new-post feed.
type Fetcher struct {
	config     *Settings
	httpClient *http.Client
}

// listing is the subset of the Reddit listing payload we read.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title string `json:"title"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewFromSettings creates a Fetcher from a free-form settings map.
func NewFromSettings(settings map[string]any) (*Fetcher, error) {
	var config Settings
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &Fetcher{
		config:     &config,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSec) * time.Second},
	}, nil
}

// FetchTrendingNames returns currently trending artist names. Best
// effort: any failure (network, non-200, unexpected payload) yields an
// empty slice, never an error. An empty result is a normal outcome.
func (f *Fetcher) FetchTrendingNames(ctx context.Context) []string {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=50", strings.TrimRight(f.config.BaseURL, "/"), f.config.Subreddit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		zlog.Debug().Err(err).Msg("trend fetch: failed to create request")
		return nil
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		zlog.Debug().Err(err).Msg("trend fetch: request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zlog.Debug().Int("status", resp.StatusCode).Msg("trend fetch: unexpected status")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zlog.Debug().Err(err).Msg("trend fetch: failed to read body")
		return nil
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		zlog.Debug().Err(err).Msg("trend fetch: unexpected payload shape")
		return nil
	}

	names := make([]string, 0, f.config.MaxNames)
	seen := make(map[string]struct{})
	for _, child := range l.Data.Children {
		name, ok := extractArtistName(child.Data.Title)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) >= f.config.MaxNames {
			break
		}
	}

	zlog.Debug().Int("count", len(names)).Str("subreddit", f.config.Subreddit).Msg("trend fetch complete")
	return names
}

var bracketTag = regexp.MustCompile(`\[[^\]]*\]`)

// extractArtistName applies the title heuristic: posts follow the
// "Artist - Song [genre] (year)" convention, so the left side of the
// first " - " is the candidate name after stripping bracketed tags.
func extractArtistName(title string) (string, bool) {
	left, _, found := strings.Cut(title, " - ")
	if !found {
		return "", false
	}

	name := bracketTag.ReplaceAllString(left, "")
	name = strings.TrimSpace(name)
	if len(name) < minNameLen || len(name) > maxNameLen {
		return "", false
	}
	return name, true
}
