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

// HTTPEstimator talks to an in-house generation service that accepts the
// two prompts and returns the generated text.
type HTTPEstimator struct {
	BaseURL string
	Client  *http.Client
}

type requestBody struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
}

type responseBody struct {
	Content      string `json:"content"`
	ModelVersion string `json:"model_version"`
}

func (h HTTPEstimator) Generate(ctx context.Context, systemPrompt, userPrompt string) Completion {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}

	b, _ := json.Marshal(requestBody{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(h.BaseURL, "/")+"/generate", bytes.NewBuffer(b))
	if err != nil {
		return failed(err, 0)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return failed(err, time.Since(start).Milliseconds())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(fmt.Errorf("generation service error: %s", resp.Status), time.Since(start).Milliseconds())
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return failed(err, time.Since(start).Milliseconds())
	}
	return Completion{
		Success:   true,
		Content:   r.Content,
		Model:     r.ModelVersion,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
