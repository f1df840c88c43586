package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	BaseSourceHistorical = "historical"
	BaseSourceCategory   = "category_default"
	BaseSourceAI         = "ai"
	BaseSourceDefault    = "default"

	defaultBaseHours = 2.0
	avgTicketHours   = 2.0
	maxAIBaseHours   = 200.0
)

type BaselineInput struct {
	Category    string
	Subject     string
	Description string
	History     []models.HistoricalTicketData
	MinSamples  int
}

type BaseHours struct {
	Hours  float64 `json:"hours"`
	Source string  `json:"source"`
}

// ResolveBaseHours picks the best available baseline: the historical mean
// for the category, the category default, an estimator answer, then 2h.
func ResolveBaseHours(ctx context.Context, in BaselineInput, rules classify.RuleSet, estimator ai.TextEstimator, timeout time.Duration) BaseHours {
	minSamples := in.MinSamples
	if minSamples <= 0 {
		minSamples = 5
	}
	sum, n := 0.0, 0
	for _, h := range in.History {
		if !strings.EqualFold(h.Category, in.Category) || h.ActualHours <= 0 {
			continue
		}
		sum += h.ActualHours
		n++
	}
	if n >= minSamples {
		return BaseHours{Hours: sum / float64(n), Source: BaseSourceHistorical}
	}

	if h, ok := rules.DefaultHours(in.Category); ok {
		return BaseHours{Hours: h, Source: BaseSourceCategory}
	}

	if estimator != nil {
		if timeout <= 0 {
			timeout = classify.DefaultTimeout
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var out struct {
			EstimatedHours float64 `json:"estimated_hours"`
		}
		system := "You estimate how many working hours a support ticket will take. " +
			"Reply with a single JSON object {\"estimated_hours\": number}."
		user := fmt.Sprintf("Category: %s\nSubject: %s\n\nDescription:\n%s", in.Category, in.Subject, in.Description)
		if ai.GenerateJSON(cctx, estimator, system, user, &out) &&
			out.EstimatedHours > 0 && out.EstimatedHours <= maxAIBaseHours {
			return BaseHours{Hours: out.EstimatedHours, Source: BaseSourceAI}
		}
	}
	return BaseHours{Hours: defaultBaseHours, Source: BaseSourceDefault}
}

var queuePriorityFactor = map[string]float64{
	models.PriorityCritical: 0.1,
	models.PriorityHigh:     0.3,
	models.PriorityMedium:   0.7,
	models.PriorityLow:      1.0,
}

// HoursAheadInQueue estimates work queued in front of a ticket: positions
// ahead at 2h each, scaled down for urgent priorities.
func HoursAheadInQueue(queuePosition int, priority string) float64 {
	ahead := queuePosition - 1
	if ahead <= 0 {
		return 0
	}
	factor, ok := queuePriorityFactor[priority]
	if !ok {
		factor = queuePriorityFactor[models.PriorityMedium]
	}
	return float64(ahead) * avgTicketHours * factor
}
