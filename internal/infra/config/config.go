// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Trending  TrendingConfig  `yaml:"trending"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// DatabaseConfig represents the SQLite database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path" default:"data/dailyjams.db"`
}

// OpenAIConfig represents the recommendation provider configuration.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key" validate:"required"`
	BaseURL     string  `yaml:"base_url" default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" default:"gpt-3.5-turbo"`
	Temperature float64 `yaml:"temperature" default:"0.7" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" default:"1000" validate:"gt=0"`
	TimeoutSec  int     `yaml:"timeout_sec" default:"30" validate:"gt=0"`
}

// SpotifyConfig represents Spotify API configuration.
// All fields may be empty: the server runs without taste blending
// or playlist export when Spotify is not configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Enabled reports whether Spotify integration is configured.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DiscoveryConfig represents exclusion policy configuration.
type DiscoveryConfig struct {
	DefaultLevel     int `yaml:"default_level" default:"3" validate:"gte=1,lte=5"`
	SkipCooldownDays int `yaml:"skip_cooldown_days" default:"5" validate:"gt=0"`
}

// TrendingConfig represents the trending signal provider configuration.
type TrendingConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Type     string         `yaml:"type" default:"reddit"`
	Settings map[string]any `yaml:"settings"`
}

// SourceConfig represents a default music discovery source seeded at startup.
type SourceConfig struct {
	Name        string `yaml:"name" validate:"required"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URL"); v != "" {
		c.Spotify.RedirectURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// DefaultSources returns the default source list, falling back to the
// built-in set when the config file does not declare any.
func (c *Config) DefaultSources() []SourceConfig {
	if len(c.Sources) > 0 {
		return c.Sources
	}
	return []SourceConfig{
		{Name: "Reddit - r/ifyoulikeblank", URL: "https://www.reddit.com/r/ifyoulikeblank/", Description: "Music recommendations based on similar artists", Enabled: true},
		{Name: "Reddit - r/Music", URL: "https://www.reddit.com/r/Music/", Description: "General music discussions and discoveries", Enabled: true},
		{Name: "Reddit - r/listentothis", URL: "https://www.reddit.com/r/listentothis/", Description: "Lesser-known artists and hidden gems", Enabled: true},
		{Name: "AllMusic", URL: "https://www.allmusic.com/", Description: "Comprehensive music database with reviews", Enabled: true},
		{Name: "Bandcamp", URL: "https://bandcamp.com/", Description: "Independent artists and underground music", Enabled: true},
	}
}
