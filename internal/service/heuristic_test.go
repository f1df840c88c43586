package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

func newHeuristic(store *fakeStore) *HeuristicEstimateService {
	return &HeuristicEstimateService{
		Schedules: store,
		Calendar:  store,
		Tickets:   store,
		Plans:     store,
		Sink:      store,
		Config:    DefaultConfig(),
		Logger:    zerolog.Nop(),
		Now:       fixedClock(at(monday, 10)),
	}
}

func TestHeuristicHours(t *testing.T) {
	if h := HeuristicHours(models.PriorityHigh, strings.Repeat("a", 1600)); h != 10 {
		t.Fatalf("expected 10h, got %v", h)
	}
	if h := HeuristicHours(models.PriorityCritical, strings.Repeat("a", 20000)); h != 18 {
		t.Fatalf("expected detail hours capped at 6, got %v", h)
	}
	if h := HeuristicHours("", ""); h != 4 {
		t.Fatalf("expected default 4h, got %v", h)
	}
	if h := HeuristicHours(models.PriorityLow, "x"); h != 3 {
		t.Fatalf("expected 2+1h, got %v", h)
	}
}

func TestHeuristicNoScheduleFallback(t *testing.T) {
	store := &fakeStore{openCount: 4}
	svc := newHeuristic(store)
	ticket := models.Ticket{ID: "t1", OrganizationID: "o1", Priority: models.PriorityHigh, Description: strings.Repeat("a", 1600)}

	est, err := svc.EstimateTicket(context.Background(), ticket, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10h + 4 open tickets * 1.5h = 16h => 2 days at 8h/day.
	if want := at(monday, 10).AddDate(0, 0, 2); !est.EstimatedCompletionAt.Equal(want) {
		t.Fatalf("expected completion %s, got %s", want, est.EstimatedCompletionAt)
	}
	if est.Rationale != "Estimated using default capacity of 8 hours per day." {
		t.Fatalf("unexpected rationale %q", est.Rationale)
	}
	if est.Confidence != 0.4 || est.ModelTag != "heuristic-v1" || est.CreatedBy != "u1" {
		t.Fatalf("unexpected estimate %+v", est)
	}
	if est.EstimatedCostCents == nil || *est.EstimatedCostCents != 150000 {
		t.Fatalf("expected cost 150000 cents, got %v", est.EstimatedCostCents)
	}
	if len(store.estimates) != 1 {
		t.Fatalf("expected estimate to be saved")
	}
	if len(store.countQueries) != 1 || strings.Join(store.countQueries[0], ",") != "new,open,in_progress,pending_client" {
		t.Fatalf("unexpected backlog statuses %v", store.countQueries)
	}
}

func TestHeuristicActivePlanHasNoCost(t *testing.T) {
	store := &fakeStore{activePlan: true}
	est, err := newHeuristic(store).EstimateTicket(context.Background(), models.Ticket{ID: "t1", OrganizationID: "o1"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.EstimatedCostCents != nil {
		t.Fatalf("expected nil cost under an active plan, got %d", *est.EstimatedCostCents)
	}
}

func TestHeuristicScheduleWalk(t *testing.T) {
	schedules := append(weekdaySchedule("s1"), weekdaySchedule("s2")...)
	store := &fakeStore{schedules: schedules, openCount: 10}
	ticket := models.Ticket{ID: "t1", OrganizationID: "o1", Priority: models.PriorityLow}

	// 2h + 15h backlog = 17h; the team has 16h per weekday.
	est, err := newHeuristic(store).EstimateTicket(context.Background(), ticket, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tuesdayEnd := monday.AddDate(0, 0, 2).Add(-1e9)
	if !est.EstimatedCompletionAt.Equal(tuesdayEnd) {
		t.Fatalf("expected end of tuesday, got %s", est.EstimatedCompletionAt)
	}
	if est.Rationale != RationaleSchedules || est.Confidence != 0.6 {
		t.Fatalf("unexpected rationale/confidence %q %v", est.Rationale, est.Confidence)
	}

	store.blocks = []models.CalendarBlock{
		{StaffID: "s1", StartAt: at(monday, 9), EndAt: at(monday, 17), IsBusy: true},
		{StaffID: "s2", StartAt: monday, EndAt: monday.AddDate(0, 0, 1), AllDay: true, IsBusy: true},
	}
	est, _ = newHeuristic(store).EstimateTicket(context.Background(), ticket, "u1")
	wednesdayEnd := monday.AddDate(0, 0, 3).Add(-1e9)
	if !est.EstimatedCompletionAt.Equal(wednesdayEnd) {
		t.Fatalf("expected blocked monday to push completion to wednesday, got %s", est.EstimatedCompletionAt)
	}
}

func TestHeuristicHorizonExhausted(t *testing.T) {
	schedules := []models.StaffSchedule{{StaffID: "s1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsWorkingDay: false}}
	store := &fakeStore{schedules: schedules}
	est, err := newHeuristic(store).EstimateTicket(context.Background(), models.Ticket{ID: "t1", OrganizationID: "o1"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := at(monday, 10).AddDate(0, 0, 45); !est.EstimatedCompletionAt.Equal(want) {
		t.Fatalf("expected horizon date %s, got %s", want, est.EstimatedCompletionAt)
	}
	if est.Confidence != 0.3 || !strings.Contains(est.Rationale, "next 45 days") {
		t.Fatalf("unexpected horizon estimate %+v", est)
	}
}

func TestHeuristicPersistFailureReturnsEstimate(t *testing.T) {
	store := &fakeStore{saveErr: func(string) error { return errors.New("disk full") }}
	est, err := newHeuristic(store).EstimateTicket(context.Background(), models.Ticket{ID: "t1", OrganizationID: "o1", Priority: models.PriorityMedium}, "u1")
	if !errors.Is(err, ErrEstimatePersist) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if est.TicketID != "t1" || est.EstimatedHours != 4 {
		t.Fatalf("expected computed estimate alongside error, got %+v", est)
	}
}

func TestHeuristicLookaheadCappedAtHorizon(t *testing.T) {
	schedules := []models.StaffSchedule{{StaffID: "s1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsWorkingDay: false}}
	store := &fakeStore{schedules: schedules}
	svc := newHeuristic(store)
	svc.Config.LookaheadDays = 90
	est, err := svc.EstimateTicket(context.Background(), models.Ticket{ID: "t1", OrganizationID: "o1"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := at(monday, 10).AddDate(0, 0, 45); !est.EstimatedCompletionAt.Equal(want) {
		t.Fatalf("expected horizon capped at 45 days (%s), got %s", want, est.EstimatedCompletionAt)
	}
	if !strings.Contains(est.Rationale, "next 45 days") {
		t.Fatalf("expected rationale to report the capped horizon, got %q", est.Rationale)
	}
	if got := (Config{LookaheadDays: 90}).withDefaults().LookaheadDays; got != 45 {
		t.Fatalf("expected lookahead clamped to 45, got %d", got)
	}
}

func TestHeuristicEstimateSerializesPerTicket(t *testing.T) {
	var active, overlap int32
	store := &fakeStore{schedules: weekdaySchedule("s1")}
	store.onSave = func() {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}
	svc := newHeuristic(store)
	ticket := models.Ticket{ID: "same", OrganizationID: "o1", Priority: models.PriorityHigh}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.EstimateTicket(context.Background(), ticket, "u1")
		}()
	}
	wg.Wait()
	if overlap != 0 {
		t.Fatalf("expected heuristic estimates of one ticket to be serialized")
	}
	if len(store.estimates) != 8 {
		t.Fatalf("expected 8 saves, got %d", len(store.estimates))
	}
	if len(svc.locks.locks) != 0 {
		t.Fatalf("expected lock entries to be released")
	}
}
