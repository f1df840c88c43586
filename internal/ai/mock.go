package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/utils"
)

// MockEstimator answers every prompt with a deterministic fenced JSON object
// derived from the prompt hash. It carries every field the estimation code
// asks for, so one mock serves classification and hour estimates.
type MockEstimator struct {
	ModelVersion string
	Categories   []string
}

func (m MockEstimator) Generate(ctx context.Context, systemPrompt, userPrompt string) Completion {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return failed(err, 0)
	}
	h := utils.HashParts(systemPrompt, userPrompt)

	categories := m.Categories
	if len(categories) == 0 {
		categories = []string{"general", "bug", "feature_request", "billing"}
	}
	priorities := []string{"low", "medium", "medium", "high"}
	hours := []float64{1, 2, 3, 4, 6, 8}
	confidences := []float64{0.62, 0.7, 0.78, 0.85}

	content := fmt.Sprintf("```json\n{\"category\": %q, \"priority\": %q, \"confidence\": %.2f, \"estimated_hours\": %.1f}\n```",
		categories[int(h%uint64(len(categories)))],
		priorities[int((h/7)%uint64(len(priorities)))],
		confidences[int((h/13)%uint64(len(confidences)))],
		hours[int((h/17)%uint64(len(hours)))],
	)
	return Completion{
		Success:   true,
		Content:   content,
		Model:     m.ModelVersion,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// NullEstimator is used when no provider is configured; it always fails.
type NullEstimator struct{}

func (NullEstimator) Generate(ctx context.Context, systemPrompt, userPrompt string) Completion {
	return failed(ErrUnavailable, 0)
}
