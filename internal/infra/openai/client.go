// Package openai provides the recommendation provider adapter for the
// OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	zlog "github.com/rs/zerolog/log"

	"github.com/dailyjams/dailyjams/internal/domain/suggestion"
)

// systemInstruction pins the provider to structured output.
const systemInstruction = "You are a helpful music discovery assistant. You only respond with valid JSON."

// Client is an OpenAI chat completions client.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// Config represents provider client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// New creates a new provider client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// FetchRecommendations sends the prompt to the provider and parses the
// structured record list out of the response. Never returns an error:
// on any failure the result is a single sentinel error record so the
// caller always has something to render.
func (c *Client) FetchRecommendations(ctx context.Context, prompt string) []suggestion.Parsed {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		zlog.Warn().Err(err).Msg("recommendation provider call failed")
		return []suggestion.Parsed{suggestion.ErrorRecord(err.Error())}
	}

	recs, err := parseRecommendations(text)
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to parse provider response")
		return []suggestion.Parsed{suggestion.ErrorRecord(err.Error())}
	}

	return recs
}

// complete performs the chat completion request and returns the raw
// assistant message content.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrapf(err, "failed to parse response (status %d)", resp.StatusCode)
	}
	if parsed.Error != nil {
		return "", errors.Newf("provider error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("response contains no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// parseRecommendations extracts the record list from a possibly-noisy
// response body. Strict parse first; on failure retry on the substring
// between the first '[' and the last ']'.
func parseRecommendations(text string) ([]suggestion.Parsed, error) {
	cleaned := stripFences(text)

	var recs []suggestion.Parsed
	if err := json.Unmarshal([]byte(cleaned), &recs); err == nil {
		return validateRecords(recs)
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end <= start {
		return nil, errors.New("response contains no JSON array")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &recs); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded JSON array")
	}

	return validateRecords(recs)
}

// stripFences removes markdown code fences some models wrap around
// JSON output.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

func validateRecords(recs []suggestion.Parsed) ([]suggestion.Parsed, error) {
	if len(recs) == 0 {
		return nil, errors.New("response contains an empty record list")
	}
	for i, r := range recs {
		if r.BandName == "" {
			return nil, errors.Newf("record %d is missing band_name", i)
		}
	}
	return recs, nil
}
