package classify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	SourceRules         = "rules"
	SourceAI            = "ai"
	SourceRulesFallback = "rules_fallback"

	// StrongSignal is the tier-1 confidence above which the estimator is skipped.
	StrongSignal   = 0.8
	confidenceGain = 1.5
	confidenceCap  = 0.95

	DefaultTimeout = 10 * time.Second
)

type Classification struct {
	Category         string  `json:"category"`
	Priority         string  `json:"priority"`
	Confidence       float64 `json:"confidence"`
	Source           string  `json:"source"`
	Escalated        bool    `json:"escalated"`
	EscalationReason string  `json:"escalation_reason,omitempty"`
}

// Classifier assigns a category and priority to ticket text. The rule table
// answers first; the estimator is consulted only on weak keyword signal.
type Classifier struct {
	Rules     RuleSet
	Estimator ai.TextEstimator
	Timeout   time.Duration
	Logger    zerolog.Logger
}

func NewClassifier(rules RuleSet, estimator ai.TextEstimator, timeout time.Duration, logger zerolog.Logger) *Classifier {
	if len(rules.Categories) == 0 {
		rules = DefaultRules()
	}
	if estimator == nil {
		estimator = ai.NullEstimator{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{Rules: rules, Estimator: estimator, Timeout: timeout, Logger: logger}
}

func (c *Classifier) rules() RuleSet {
	if len(c.Rules.Categories) == 0 {
		return DefaultRules()
	}
	return c.Rules
}

func (c *Classifier) Classify(ctx context.Context, subject, description string) Classification {
	rules := c.rules()
	cat, conf := rules.MatchCategory(subject, description)
	esc := rules.EscalationCheck(subject, description)

	result := Classification{
		Category:   cat.Name,
		Priority:   cat.DefaultPriority,
		Confidence: conf,
		Source:     SourceRules,
	}
	if conf > StrongSignal {
		return applyEscalation(result, esc)
	}

	aiResult, ok := c.tier2(ctx, rules, subject, description)
	if !ok {
		result.Source = SourceRulesFallback
		return applyEscalation(result, esc)
	}
	return applyEscalation(aiResult, esc)
}

// MatchCategory scores every category by matched keyword ratio and returns
// the best one with its scaled confidence. Ties keep the earlier category.
func (r RuleSet) MatchCategory(subject, description string) (Category, float64) {
	if len(r.Categories) == 0 {
		return Category{Name: "general", DefaultPriority: models.PriorityMedium}, 0
	}
	text := strings.ToLower(subject + " " + description)
	best := r.Categories[0]
	bestRatio := -1.0
	for _, c := range r.Categories {
		if len(c.Keywords) == 0 {
			continue
		}
		matched := 0
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(c.Keywords))
		if ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	if bestRatio < 0 {
		bestRatio = 0
	}
	return best, math.Min(confidenceCap, bestRatio*confidenceGain)
}

type aiClassification struct {
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

func (c *Classifier) tier2(ctx context.Context, rules RuleSet, subject, description string) (Classification, bool) {
	if c.Estimator == nil {
		return Classification{}, false
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	system := fmt.Sprintf(
		"You classify customer support tickets. Reply with a single JSON object "+
			"{\"category\": string, \"priority\": string, \"confidence\": number}. "+
			"category must be one of: %s. priority must be one of: low, medium, high, critical. "+
			"confidence is between 0 and 1.",
		strings.Join(rules.CategoryNames(), ", "))
	user := fmt.Sprintf("Subject: %s\n\nDescription:\n%s", subject, description)

	var out aiClassification
	if !ai.GenerateJSON(ctx, c.Estimator, system, user, &out) {
		c.Logger.Debug().Str("subject", subject).Msg("classifier estimator unavailable, using keyword result")
		return Classification{}, false
	}
	return Classification{
		Category:   rules.NormalizeCategory(out.Category),
		Priority:   NormalizePriority(out.Priority),
		Confidence: clamp01(out.Confidence),
		Source:     SourceAI,
	}, true
}

func applyEscalation(c Classification, esc Escalation) Classification {
	if esc.RequiresEscalation {
		c.Priority = models.PriorityCritical
		c.Escalated = true
		c.EscalationReason = esc.Reason
	}
	return c
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
