package service

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateFactors(t *testing.T) {
	got := CalculateFactors(FactorInput{Priority: models.PriorityMedium, QueuePosition: 3, UtilizationPercent: 60, ComplexityScore: 0.5})
	if len(got) != 0 {
		t.Fatalf("expected no factors for a neutral ticket, got %+v", got)
	}

	got = CalculateFactors(FactorInput{Priority: models.PriorityLow, QueuePosition: 7, UtilizationPercent: 85, ComplexityScore: 0.8})
	if len(got) != 4 {
		t.Fatalf("expected 4 factors, got %+v", got)
	}
	if got[0].Name != "priority" || got[0].Direction != models.DirectionIncreases || got[0].Weight != 0.2 {
		t.Fatalf("unexpected priority factor %+v", got[0])
	}
	if got[1].Name != "queue_depth" || !near(got[1].Weight, 0.9) {
		t.Fatalf("unexpected queue factor %+v", got[1])
	}
	if got[2].Name != "staff_utilization" || got[2].Weight != 0.2 {
		t.Fatalf("unexpected utilization factor %+v", got[2])
	}
	if got[3].Name != "complexity" || !near(got[3].Weight, 0.24) {
		t.Fatalf("unexpected complexity factor %+v", got[3])
	}

	got = CalculateFactors(FactorInput{Priority: models.PriorityCritical, QueuePosition: 1, UtilizationPercent: 40, ComplexityScore: 0.2})
	for _, f := range got {
		if f.Direction != models.DirectionDecreases {
			t.Fatalf("expected only decreasing factors, got %+v", got)
		}
	}
	if len(got) != 3 || got[0].Weight != 0.3 || got[1].Weight != 0.15 || !near(got[2].Weight, 0.16) {
		t.Fatalf("unexpected decreasing factors %+v", got)
	}
}

func TestHoursAheadInQueue(t *testing.T) {
	if h := HoursAheadInQueue(1, models.PriorityLow); h != 0 {
		t.Fatalf("expected nothing ahead at position 1, got %v", h)
	}
	if h := HoursAheadInQueue(4, models.PriorityCritical); !near(h, 0.6) {
		t.Fatalf("expected 0.6h, got %v", h)
	}
	if h := HoursAheadInQueue(4, models.PriorityLow); h != 6 {
		t.Fatalf("expected 6h, got %v", h)
	}
	if h := HoursAheadInQueue(4, "bogus"); !near(h, 4.2) {
		t.Fatalf("expected unknown priority to scale like medium, got %v", h)
	}
}

func windowsOf(start time.Time, net ...float64) []models.AvailabilityWindow {
	out := make([]models.AvailabilityWindow, len(net))
	for i, n := range net {
		out[i] = models.AvailabilityWindow{Date: start.AddDate(0, 0, i), AvailableHours: 8, BlockedHours: 8 - n, NetHours: n}
	}
	return out
}

func TestWalkCompletionWithinWindows(t *testing.T) {
	res := WalkCompletion(WalkInput{BaseHours: 4, Windows: windowsOf(monday, 2, 2, 2, 2), Start: monday})
	if res.TotalHoursNeeded != 4*1.2 {
		t.Fatalf("unexpected total %v", res.TotalHoursNeeded)
	}
	if !res.StartDate.Equal(monday) {
		t.Fatalf("expected start monday, got %s", res.StartDate)
	}
	if want := monday.AddDate(0, 0, 2); !res.CompletionDate.Equal(want) {
		t.Fatalf("expected completion %s, got %s", want, res.CompletionDate)
	}
	if res.Extrapolated {
		t.Fatalf("did not expect extrapolation")
	}

	res = WalkCompletion(WalkInput{BaseHours: 2, HoursAhead: 10, Windows: windowsOf(monday, 8, 8, 8), Start: monday})
	tuesday := monday.AddDate(0, 0, 1)
	if !res.CompletionDate.Equal(tuesday) || !res.StartDate.Equal(tuesday) {
		t.Fatalf("expected start and completion tuesday, got %s / %s", res.StartDate, res.CompletionDate)
	}
}

func TestWalkCompletionAppliesFactors(t *testing.T) {
	factors := []models.EstimationFactor{
		{Direction: models.DirectionIncreases, Weight: 0.5},
		{Direction: models.DirectionDecreases, Weight: 0.2},
	}
	res := WalkCompletion(WalkInput{BaseHours: 10, Factors: factors, Start: monday})
	if !near(res.AdjustedHours, 10*1.5*0.9) {
		t.Fatalf("expected damped decrease, got %v", res.AdjustedHours)
	}
}

func TestWalkCompletionExtrapolates(t *testing.T) {
	// total 28.8h, own share 12h; nothing available in the windows.
	res := WalkCompletion(WalkInput{BaseHours: 10, HoursAhead: 14, Windows: windowsOf(monday, 0, 0), Start: monday})
	if !res.Extrapolated {
		t.Fatalf("expected extrapolation")
	}
	wednesday := monday.AddDate(0, 0, 2)
	if want := wednesday.AddDate(0, 0, 4); !res.CompletionDate.Equal(want) {
		t.Fatalf("expected completion %s, got %s", want, res.CompletionDate)
	}
	if want := wednesday.AddDate(0, 0, 3); !res.StartDate.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, res.StartDate)
	}

	res = WalkCompletion(WalkInput{BaseHours: 1, Start: at(monday, 15)})
	if !res.CompletionDate.Equal(monday) || !res.StartDate.Equal(monday) {
		t.Fatalf("expected same-day extrapolated completion, got %s / %s", res.StartDate, res.CompletionDate)
	}
}

func TestPriorityMonotonicity(t *testing.T) {
	schedules := weekdaySchedule("s1")
	for pos := 1; pos <= 12; pos++ {
		for _, util := range []float64{10, 60, 95} {
			for _, complexity := range []float64{0.2, 0.5, 0.9} {
				for _, days := range []int{3, 14} {
					windows := capacity.GenerateAvailabilityWindows(schedules, nil, monday, days)
					completion := func(priority string) time.Time {
						factors := CalculateFactors(FactorInput{Priority: priority, QueuePosition: pos, UtilizationPercent: util, ComplexityScore: complexity})
						return WalkCompletion(WalkInput{
							BaseHours:  6,
							HoursAhead: HoursAheadInQueue(pos, priority),
							Factors:    factors,
							Windows:    windows,
							Start:      monday,
						}).CompletionDate
					}
					crit, med := completion(models.PriorityCritical), completion(models.PriorityMedium)
					if crit.After(med) {
						t.Fatalf("critical %s after medium %s (pos=%d util=%v complexity=%v days=%d)", crit, med, pos, util, complexity, days)
					}
				}
			}
		}
	}
}

func TestScoreConfidence(t *testing.T) {
	if p, l := ScoreConfidence(4, nil, 14); p != 80 || l != models.ConfidenceHigh {
		t.Fatalf("expected 80/high, got %d/%s", p, l)
	}
	increases := []models.EstimationFactor{
		{Direction: models.DirectionIncreases}, {Direction: models.DirectionIncreases}, {Direction: models.DirectionIncreases},
	}
	if p, l := ScoreConfidence(20, increases, 3); p != 30 || l != models.ConfidenceLow {
		t.Fatalf("expected floor 30/low, got %d/%s", p, l)
	}
	if p, l := ScoreConfidence(10, nil, 10); p != 60 || l != models.ConfidenceMedium {
		t.Fatalf("expected 60/medium, got %d/%s", p, l)
	}

	for hours := 0.0; hours < 40; hours += 3.5 {
		for n := 0; n < 8; n++ {
			for days := 0; days < 30; days += 4 {
				p, l := ScoreConfidence(hours, increases[:n%4], days)
				if p < 30 || p > 95 {
					t.Fatalf("percent %d out of bounds", p)
				}
				if (l == models.ConfidenceHigh) != (p >= 70) || (l == models.ConfidenceMedium) != (p >= 50 && p < 70) {
					t.Fatalf("level %s does not match percent %d", l, p)
				}
			}
		}
	}
}

func TestClientMessage(t *testing.T) {
	wed := monday.AddDate(0, 0, 2)
	if got := ClientMessage(models.PriorityMedium, models.ConfidenceHigh, wed); got != "We expect to have it completed by Wednesday, October 21." {
		t.Fatalf("unexpected message %q", got)
	}
	got := ClientMessage(models.PriorityCritical, models.ConfidenceLow, wed)
	if !strings.HasPrefix(got, "This request is marked critical") || !strings.Contains(got, "Wednesday, October 21") {
		t.Fatalf("unexpected message %q", got)
	}
}

type stubEstimator struct{ content string }

func (s stubEstimator) Generate(ctx context.Context, system, user string) ai.Completion {
	return ai.Completion{Success: true, Content: s.content}
}

func TestResolveBaseHours(t *testing.T) {
	rules := classify.DefaultRules()
	var history []models.HistoricalTicketData
	for _, h := range []float64{2, 4, 6, 8, 10} {
		history = append(history, models.HistoricalTicketData{Category: "bug", ActualHours: h})
	}

	got := ResolveBaseHours(context.Background(), BaselineInput{Category: "bug", History: history}, rules, nil, time.Second)
	if got.Source != BaseSourceHistorical || got.Hours != 6 {
		t.Fatalf("expected historical mean 6, got %+v", got)
	}

	got = ResolveBaseHours(context.Background(), BaselineInput{Category: "bug", History: history[:4]}, rules, nil, time.Second)
	if got.Source != BaseSourceCategory || got.Hours != 3 {
		t.Fatalf("expected category default 3, got %+v", got)
	}

	est := stubEstimator{content: "```json\n{\"estimated_hours\": 6.5}\n```"}
	got = ResolveBaseHours(context.Background(), BaselineInput{Category: "migration"}, rules, est, time.Second)
	if got.Source != BaseSourceAI || got.Hours != 6.5 {
		t.Fatalf("expected estimator hours, got %+v", got)
	}

	got = ResolveBaseHours(context.Background(), BaselineInput{Category: "migration"}, rules, ai.NullEstimator{}, time.Second)
	if got.Source != BaseSourceDefault || got.Hours != 2 {
		t.Fatalf("expected default 2h, got %+v", got)
	}
}

func TestResolveBaseHoursRejectsOutOfRangeModelAnswers(t *testing.T) {
	rules := classify.DefaultRules()
	cases := map[string]string{
		"too large": `{"estimated_hours": 500}`,
		"zero":      `{"estimated_hours": 0}`,
		"negative":  `{"estimated_hours": -3}`,
	}
	for name, content := range cases {
		got := ResolveBaseHours(context.Background(), BaselineInput{Category: "migration"}, rules, stubEstimator{content: content}, time.Second)
		if got.Source != BaseSourceDefault || got.Hours != 2 {
			t.Fatalf("%s: expected default 2h, got %+v", name, got)
		}
	}

	got := ResolveBaseHours(context.Background(), BaselineInput{Category: "migration"}, rules, stubEstimator{content: `{"estimated_hours": 200}`}, time.Second)
	if got.Source != BaseSourceAI || got.Hours != 200 {
		t.Fatalf("expected upper bound to be accepted, got %+v", got)
	}
}

func TestQueueRank(t *testing.T) {
	open := []models.Ticket{
		{ID: "a", Priority: models.PriorityLow, CreatedAt: at(monday, 1)},
		{ID: "b", Priority: models.PriorityHigh, CreatedAt: at(monday, 5)},
		{ID: "c", Priority: models.PriorityHigh, CreatedAt: at(monday, 2)},
		{ID: "d", Priority: models.PriorityCritical, CreatedAt: at(monday, 9)},
	}
	ticket := models.Ticket{ID: "b", Priority: models.PriorityHigh, CreatedAt: at(monday, 5)}
	if got := QueueRank(ticket, open); got != 3 {
		t.Fatalf("expected position 3, got %d", got)
	}
	fresh := models.Ticket{ID: "z", Priority: models.PriorityLow, CreatedAt: at(monday, 10)}
	if got := QueueRank(fresh, open); got != 5 {
		t.Fatalf("expected new low ticket last, got %d", got)
	}
}

func TestPickAssignee(t *testing.T) {
	loads := []models.WorkloadAnalysis{
		{StaffID: "s3", UtilizationPercent: 40},
		{StaffID: "s2", UtilizationPercent: 10},
		{StaffID: "s1", UtilizationPercent: 10},
	}
	got, ok := PickAssignee(loads)
	if !ok || got.StaffID != "s1" {
		t.Fatalf("expected s1 on tie, got %+v", got)
	}
	if loads[0].StaffID != "s3" {
		t.Fatalf("expected input order to be preserved")
	}
	if _, ok := PickAssignee(nil); ok {
		t.Fatalf("expected no assignee for empty staff")
	}
}
