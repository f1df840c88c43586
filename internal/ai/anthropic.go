package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
)

// AnthropicEstimator calls the Messages API with a single user turn.
type AnthropicEstimator struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *AnthropicEstimator) Generate(ctx context.Context, systemPrompt, userPrompt string) Completion {
	base := strings.TrimRight(a.BaseURL, "/")
	if base == "" {
		base = defaultAnthropicURL
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	b, _ := json.Marshal(anthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return failed(err, 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := clientFor(ctx).Do(req)
	if err != nil {
		return failed(transportError(err), time.Since(start).Milliseconds())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		var retry time.Duration
		if s := resp.Header.Get("retry-after"); s != "" {
			retry, _ = time.ParseDuration(s + "s")
		}
		return failed(RateLimitError{RetryAfter: retry}, time.Since(start).Milliseconds())
	}
	if resp.StatusCode >= 400 {
		return failed(fmt.Errorf("messages http error: %s", resp.Status), time.Since(start).Milliseconds())
	}

	var res anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return failed(err, time.Since(start).Milliseconds())
	}
	var text strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return failed(fmt.Errorf("empty messages response"), time.Since(start).Milliseconds())
	}
	model := res.Model
	if model == "" {
		model = a.Model
	}
	return Completion{Success: true, Content: text.String(), Model: model, LatencyMs: time.Since(start).Milliseconds()}
}
