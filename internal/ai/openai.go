package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OpenAICompatEstimator calls any /chat/completions endpoint that speaks the
// OpenAI wire format. Identical prompts are answered from a short TTL cache.
type OpenAICompatEstimator struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
}

var (
	cacheMu    sync.Mutex
	cacheStore = map[string]cacheEntry{}
	cacheTTL   = 60 * time.Second
)

type cacheEntry struct {
	value string
	exp   time.Time
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *OpenAICompatEstimator) Generate(ctx context.Context, systemPrompt, userPrompt string) Completion {
	if strings.TrimSpace(a.BaseURL) == "" || strings.TrimSpace(a.Model) == "" {
		return failed(ErrUnavailable, 0)
	}
	key := a.Model + "\x00" + systemPrompt + "\x00" + userPrompt
	if v, ok := cacheGet(key); ok {
		return Completion{Success: true, Content: v, Model: a.Model}
	}

	payload := struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Messages    []chatMessage `json:"messages"`
	}{
		Model:     a.Model,
		MaxTokens: a.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	start := time.Now()
	content, err := a.post(ctx, payload)
	if err != nil {
		return failed(err, time.Since(start).Milliseconds())
	}
	cacheSet(key, content)
	return Completion{Success: true, Content: content, Model: a.Model, LatencyMs: time.Since(start).Milliseconds()}
}

func (a *OpenAICompatEstimator) post(ctx context.Context, payload any) (string, error) {
	b, _ := json.Marshal(payload)
	url := strings.TrimRight(a.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(a.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	resp, err := clientFor(ctx).Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", RateLimitError{RetryAfter: extractRetryAfter(errBody)}
		}
		return "", fmt.Errorf("completion http error: %s: %v", resp.Status, errBody)
	}

	var res struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return res.Choices[0].Message.Content, nil
}

// clientFor bounds the HTTP client by the caller's deadline.
func clientFor(ctx context.Context) *http.Client {
	timeout := 45 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	return &http.Client{Timeout: timeout}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("completion request timed out: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("completion request timed out: %w", err)
	}
	return fmt.Errorf("completion request failed: %w", err)
}

func cacheGet(key string) (string, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if e, ok := cacheStore[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(cacheStore, key)
	}
	return "", false
}

// cacheSet stores value and drops every expired entry, so prompts that are
// never asked twice do not accumulate.
func cacheSet(key, value string) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	now := time.Now()
	for k, e := range cacheStore {
		if !now.Before(e.exp) {
			delete(cacheStore, k)
		}
	}
	cacheStore[key] = cacheEntry{
		value: value,
		exp:   now.Add(cacheTTL),
	}
}

func extractRetryAfter(errBody map[string]any) time.Duration {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}
