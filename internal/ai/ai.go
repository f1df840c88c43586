package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var ErrUnavailable = errors.New("text estimator unavailable")

// Completion is the outcome of a single generative-text call. Providers
// never panic or return errors directly; Success=false tells the caller to
// use its own fallback.
type Completion struct {
	Success   bool
	Content   string
	Model     string
	LatencyMs int64
	Err       error
}

func failed(err error, latencyMs int64) Completion {
	return Completion{Success: false, Err: err, LatencyMs: latencyMs}
}

// TextEstimator is a generative-text provider. Implementations are built
// once at process start and passed into the classifier and estimators.
type TextEstimator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) Completion
}

// GenerateJSON asks est for a JSON object and decodes it into out. Markdown
// code fences around the object are tolerated. It reports false on any
// provider failure or undecodable content.
func GenerateJSON(ctx context.Context, est TextEstimator, systemPrompt, userPrompt string, out any) bool {
	if est == nil {
		return false
	}
	res := est.Generate(ctx, systemPrompt, userPrompt)
	if !res.Success {
		return false
	}
	body := StripCodeFences(res.Content)
	if body == "" {
		return false
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false
	}
	return true
}

// StripCodeFences removes a surrounding ``` or ```json fence.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type Options struct {
	Provider  string
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
}

// New picks a provider by name. Unknown or unconfigured providers degrade
// to NullEstimator so estimation always falls back to the rule paths.
func New(opts Options) TextEstimator {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "openai":
		if opts.BaseURL == "" || opts.Model == "" {
			return NullEstimator{}
		}
		return &OpenAICompatEstimator{BaseURL: opts.BaseURL, Model: opts.Model, APIKey: opts.APIKey, MaxTokens: opts.MaxTokens}
	case "anthropic":
		if opts.APIKey == "" || opts.Model == "" {
			return NullEstimator{}
		}
		return &AnthropicEstimator{BaseURL: opts.BaseURL, Model: opts.Model, APIKey: opts.APIKey, MaxTokens: opts.MaxTokens}
	case "http":
		if opts.BaseURL == "" {
			return NullEstimator{}
		}
		return HTTPEstimator{BaseURL: opts.BaseURL}
	case "mock":
		return MockEstimator{ModelVersion: "mock-v1"}
	default:
		return NullEstimator{}
	}
}
