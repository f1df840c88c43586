package classify

import (
	"math"
	"strings"
	"unicode/utf8"
)

var (
	highComplexity = []string{
		"integration", "migration", "database", "api", "architecture",
		"performance", "multiple systems", "third-party", "refactor",
		"custom development", "infrastructure", "data import",
	}
	mediumComplexity = []string{
		"configure", "configuration", "update", "modify", "workflow",
		"template", "report", "form", "redesign", "plugin",
	}
	lowComplexity = []string{
		"typo", "text change", "simple", "quick", "minor", "small change",
		"change the color", "swap image",
	}
)

const (
	baseComplexity   = 0.3
	highWeight       = 0.15
	mediumWeight     = 0.08
	lowWeight        = 0.10
	longDescription  = 1000
	veryLongDescript = 2000
)

// ScoreComplexity is a 0.1..1.0 heuristic over indicator phrases and
// description length. Each phrase counts once.
func ScoreComplexity(subject, description string) float64 {
	text := strings.ToLower(subject + " " + description)
	score := baseComplexity
	for _, p := range highComplexity {
		if strings.Contains(text, p) {
			score += highWeight
		}
	}
	for _, p := range mediumComplexity {
		if strings.Contains(text, p) {
			score += mediumWeight
		}
	}
	for _, p := range lowComplexity {
		if strings.Contains(text, p) {
			score -= lowWeight
		}
	}
	n := utf8.RuneCountInString(description)
	if n > longDescription {
		score += 0.1
	}
	if n > veryLongDescript {
		score += 0.1
	}
	return math.Max(0.1, math.Min(1.0, score))
}
