package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

const provider = "openai"

var listMarker = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+`)

const systemPrompt = "You correct misspelled shop search queries for a local storefront. " +
	"Reply with a JSON array of up to %d alternative search strings, most likely first. " +
	"Reply with [] when the query already looks correct."

// Suggester produces did-you-mean suggestions with an OpenAI-compatible chat model.
type Suggester struct {
	client *openai.Client
	model  string
	max    int
	logger *zap.Logger
}

// Config holds the suggester settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Max     int
	Logger  *zap.Logger
}

// NewSuggester creates an OpenAI-compatible suggester.
func NewSuggester(cfg *Config) *Suggester {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Suggester{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		max:    cfg.Max,
		logger: cfg.Logger,
	}
}

// Suggest asks the model for alternative spellings of the query.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]string, error) {
	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, s.max)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0,
	})
	if err != nil {
		metrics.SuggestionRequestsTotal.WithLabelValues(provider, "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.SuggestionRequestsTotal.WithLabelValues(provider, "error").Inc()
		return nil, errors.New("empty completion response")
	}

	metrics.SuggestionRequestsTotal.WithLabelValues(provider, "success").Inc()
	suggestions := parseSuggestions(resp.Choices[0].Message.Content, query, s.max)

	s.logger.Debug("Suggestions generated",
		zap.String("model", s.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("count", len(suggestions)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return suggestions, nil
}

// parseSuggestions accepts a JSON array or one suggestion per line.
// Blanks, duplicates and the query itself are dropped.
func parseSuggestions(content, query string, limit int) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		for _, line := range strings.Split(content, "\n") {
			raw = append(raw, listMarker.ReplaceAllString(line, ""))
		}
	}

	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(query)): {}}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		key := strings.ToLower(r)
		if r == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("suggestion API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("suggestion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("suggestion request failed: %w", err)
}
