package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	bufferMultiplier   = 1.2
	extrapolatedPerDay = 6.0
)

type WalkInput struct {
	BaseHours  float64
	HoursAhead float64
	Factors    []models.EstimationFactor
	Windows    []models.AvailabilityWindow
	Start      time.Time
}

type WalkResult struct {
	AdjustedHours    float64
	TotalHoursNeeded float64
	StartDate        time.Time
	CompletionDate   time.Time
	Extrapolated     bool
}

// AdjustHours applies factor weights multiplicatively. Decreasing factors
// act at half strength.
func AdjustHours(base float64, factors []models.EstimationFactor) float64 {
	adjusted := base
	for _, f := range factors {
		switch f.Direction {
		case models.DirectionIncreases:
			adjusted *= 1 + f.Weight
		case models.DirectionDecreases:
			adjusted *= 1 - f.Weight*0.5
		}
	}
	return adjusted
}

// WalkCompletion consumes net hours day by day until the queued work plus
// this ticket (with a 20% buffer) is covered. Past the last window it
// assumes a flat 6h per day.
func WalkCompletion(in WalkInput) WalkResult {
	adjusted := AdjustHours(in.BaseHours, in.Factors)
	own := adjusted * bufferMultiplier
	total := (in.HoursAhead + adjusted) * bufferMultiplier
	res := WalkResult{AdjustedHours: adjusted, TotalHoursNeeded: total}

	remaining := total
	startSet := false
	for _, w := range in.Windows {
		if !startSet && remaining <= own {
			res.StartDate = w.Date
			startSet = true
		}
		remaining -= w.NetHours
		if remaining <= 0 {
			res.CompletionDate = w.Date
			if !startSet {
				res.StartDate = w.Date
			}
			return res
		}
	}

	next := capacity.DayStart(in.Start)
	if n := len(in.Windows); n > 0 {
		next = in.Windows[n-1].Date.AddDate(0, 0, 1)
	}
	res.Extrapolated = true

	// Day i (0-based) of extrapolation starts with remaining-6i hours left.
	if !startSet {
		i := 0
		if remaining > own {
			i = int(math.Ceil((remaining - own) / extrapolatedPerDay))
		}
		res.StartDate = next.AddDate(0, 0, i)
	}
	last := int(math.Ceil(remaining/extrapolatedPerDay)) - 1
	if last < 0 {
		last = 0
	}
	res.CompletionDate = next.AddDate(0, 0, last)
	if res.StartDate.After(res.CompletionDate) {
		res.StartDate = res.CompletionDate
	}
	return res
}

// ScoreConfidence turns estimate size, pressure factors and data coverage
// into a percent in [30, 95] and its level.
func ScoreConfidence(estimatedHours float64, factors []models.EstimationFactor, windowDays int) (int, string) {
	score := 70
	if estimatedHours > 8 {
		score -= 10
	}
	if estimatedHours > 16 {
		score -= 10
	}
	for _, f := range factors {
		if f.Direction == models.DirectionIncreases {
			score -= 5
		}
	}
	if windowDays >= 14 {
		score += 10
	}
	if windowDays < 7 {
		score -= 10
	}
	if score < 30 {
		score = 30
	}
	if score > 95 {
		score = 95
	}
	return score, ConfidenceLevel(score)
}

func ConfidenceLevel(percent int) string {
	switch {
	case percent >= 70:
		return models.ConfidenceHigh
	case percent >= 50:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

var priorityPhrases = map[string]string{
	models.PriorityCritical: "This request is marked critical and is being handled ahead of all other work.",
	models.PriorityHigh:     "This request is prioritized ahead of routine work.",
	models.PriorityMedium:   "",
	models.PriorityLow:      "This request is scheduled alongside other routine work.",
}

var confidencePhrases = map[string]string{
	models.ConfidenceHigh:   "We expect to have it completed by %s.",
	models.ConfidenceMedium: "We estimate it will be completed around %s.",
	models.ConfidenceLow:    "Our current best estimate is %s; we will keep you updated if that changes.",
}

const clientDateLayout = "Monday, January 2"

// ClientMessage builds the customer-facing sentence from fixed phrases.
func ClientMessage(priority, level string, completion time.Time) string {
	parts := []string{priorityPhrases[priority]}
	if p, ok := confidencePhrases[level]; ok {
		parts = append(parts, fmt.Sprintf(p, completion.Format(clientDateLayout)))
	}
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

type BreakdownInput struct {
	Base              BaseHours
	Walk              WalkResult
	HoursAhead        float64
	Queue             models.QueueMetadata
	Factors           []models.EstimationFactor
	Workload          models.WorkloadAnalysis
	ComplexityScore   float64
	WindowDays        int
	ConfidencePercent int
	ConfidenceLevel   string
}

// StaffBreakdown is the multi-line explanation shown to staff.
func StaffBreakdown(in BreakdownInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Base estimate: %.1fh (%s)\n", in.Base.Hours, in.Base.Source)
	fmt.Fprintf(&b, "Adjusted estimate: %.1fh\n", in.Walk.AdjustedHours)
	fmt.Fprintf(&b, "Queue: position %d, %.1fh ahead\n", in.Queue.Position, in.HoursAhead)
	fmt.Fprintf(&b, "Total with buffer: %.1fh\n", in.Walk.TotalHoursNeeded)
	fmt.Fprintf(&b, "Complexity: %.2f\n", in.ComplexityScore)
	fmt.Fprintf(&b, "Assignee utilization: %.0f%% (%.1fh free today, %.1fh weekly capacity)\n",
		in.Workload.UtilizationPercent, in.Workload.AvailableHoursToday, in.Workload.AvailableHoursWeek)
	if len(in.Factors) > 0 {
		b.WriteString("Factors:\n")
		for _, f := range in.Factors {
			fmt.Fprintf(&b, "  - %s %s by %.2f: %s\n", f.Name, f.Direction, f.Weight, f.Description)
		}
	}
	fmt.Fprintf(&b, "Availability data: %d days", in.WindowDays)
	if in.Walk.Extrapolated {
		fmt.Fprintf(&b, " (extrapolated at %.0fh/day beyond)", extrapolatedPerDay)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Window: %s to %s\n", in.Walk.StartDate.Format(capacity.DateLayout), in.Walk.CompletionDate.Format(capacity.DateLayout))
	fmt.Fprintf(&b, "Confidence: %d%% (%s)", in.ConfidencePercent, in.ConfidenceLevel)
	return b.String()
}
