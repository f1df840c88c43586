package capacity

import (
	"testing"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

// monday is 2026-10-19.
var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func weekdaySchedule(staffID string) []models.StaffSchedule {
	var out []models.StaffSchedule
	for d := 1; d <= 5; d++ {
		out = append(out, models.StaffSchedule{StaffID: staffID, DayOfWeek: d, StartTime: "09:00", EndTime: "17:00", IsWorkingDay: true})
	}
	out = append(out, models.StaffSchedule{StaffID: staffID, DayOfWeek: 6, StartTime: "09:00", EndTime: "13:00", IsWorkingDay: false})
	return out
}

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func TestScheduledHoursMissingAndNonWorkingDays(t *testing.T) {
	schedules := weekdaySchedule("s1")
	if h := ScheduledHours(schedules, "s1", time.Monday); h != 8 {
		t.Fatalf("expected 8h on monday, got %v", h)
	}
	if h := ScheduledHours(schedules, "s1", time.Saturday); h != 0 {
		t.Fatalf("expected non-working saturday to be 0, got %v", h)
	}
	if h := ScheduledHours(schedules, "s1", time.Sunday); h != 0 {
		t.Fatalf("expected missing sunday to be 0, got %v", h)
	}
	if h := ScheduledHours(schedules, "other", time.Monday); h != 0 {
		t.Fatalf("expected unknown staff to be 0, got %v", h)
	}
}

func TestResolveBusyHoursClipsTimedBlocksToDays(t *testing.T) {
	schedules := weekdaySchedule("s1")
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: at(monday, 16), EndAt: at(monday, 26), IsBusy: true},
	}
	busy := ResolveBusyHours(schedules, blocks, monday, 7)
	if got := busy.Busy("s1", monday); got != 8 {
		t.Fatalf("expected 8 busy hours on monday, got %v", got)
	}
	tuesday := monday.AddDate(0, 0, 1)
	if got := busy.Busy("s1", tuesday); got != 2 {
		t.Fatalf("expected 2 busy hours on tuesday, got %v", got)
	}
	if net := NetHours(schedules, busy, "s1", monday); net != 0 {
		t.Fatalf("expected monday net 0, got %v", net)
	}
	if net := NetHours(schedules, busy, "s1", tuesday); net != 6 {
		t.Fatalf("expected tuesday net 6, got %v", net)
	}
}

func TestResolveBusyHoursAllDayUsesScheduledHours(t *testing.T) {
	schedules := weekdaySchedule("s1")
	wednesday := monday.AddDate(0, 0, 2)
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: wednesday, EndAt: wednesday.AddDate(0, 0, 1), AllDay: true, IsBusy: true},
	}
	busy := ResolveBusyHours(schedules, blocks, monday, 14)
	if got := busy.Busy("s1", wednesday); got != 8 {
		t.Fatalf("expected all-day block to consume 8h, got %v", got)
	}
	if got := busy.Busy("s1", wednesday.AddDate(0, 0, 1)); got != 0 {
		t.Fatalf("expected exclusive end to leave thursday free, got %v", got)
	}
}

func TestResolveBusyHoursSumsOverlappingBlocks(t *testing.T) {
	schedules := weekdaySchedule("s1")
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: at(monday, 10), EndAt: at(monday, 12), IsBusy: true},
		{StaffID: "s1", StartAt: at(monday, 10), EndAt: at(monday, 12), IsBusy: true},
		{StaffID: "s1", StartAt: at(monday, 13), EndAt: at(monday, 14), IsBusy: false},
	}
	busy := ResolveBusyHours(schedules, blocks, monday, 1)
	if got := busy.Busy("s1", monday); got != 4 {
		t.Fatalf("expected overlapping blocks to sum to 4h, got %v", got)
	}
}

func TestResolveBusyHoursClampsHorizon(t *testing.T) {
	schedules := weekdaySchedule("s1")
	far := monday.AddDate(0, 0, 60)
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: at(far, 10), EndAt: at(far, 12), IsBusy: true},
	}
	busy := ResolveBusyHours(schedules, blocks, monday, 90)
	if got := busy.Busy("s1", far); got != 0 {
		t.Fatalf("expected block beyond %d days to be ignored, got %v", MaxHorizonDays, got)
	}
}

func TestGenerateAvailabilityWindowsDefaultsAndBlocks(t *testing.T) {
	schedules := weekdaySchedule("s1")
	tuesday := monday.AddDate(0, 0, 1)
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: at(monday, 9), EndAt: at(monday, 12), IsBusy: true},
		{StaffID: "s1", StartAt: tuesday, EndAt: tuesday, AllDay: true, IsBusy: true},
		// starts on sunday, so it does not reduce monday
		{StaffID: "s1", StartAt: at(monday, -2), EndAt: at(monday, 10), IsBusy: true},
	}
	windows := GenerateAvailabilityWindows(schedules, blocks, at(monday, 15), 0)
	if len(windows) != DefaultWindowDays {
		t.Fatalf("expected %d windows, got %d", DefaultWindowDays, len(windows))
	}
	if !windows[0].Date.Equal(monday) {
		t.Fatalf("expected first window on monday, got %s", windows[0].Date)
	}
	if windows[0].BlockedHours != 3 || windows[0].NetHours != 5 {
		t.Fatalf("unexpected monday window: %+v", windows[0])
	}
	if windows[1].BlockedHours != 8 || windows[1].NetHours != 0 {
		t.Fatalf("expected all-day tuesday to be fully blocked: %+v", windows[1])
	}
	if windows[5].AvailableHours != 0 || windows[6].AvailableHours != 0 {
		t.Fatalf("expected weekend windows to have no availability")
	}
}

func TestGenerateAvailabilityWindowsNetStaysWithinBounds(t *testing.T) {
	schedules := weekdaySchedule("s1")
	var blocks []models.CalendarBlock
	for i := 0; i < 40; i++ {
		day := monday.AddDate(0, 0, i%20-3)
		blocks = append(blocks,
			models.CalendarBlock{StaffID: "s1", StartAt: at(day, i%24), EndAt: at(day, i%24+i%30), IsBusy: true},
			models.CalendarBlock{StaffID: "s1", StartAt: at(day, 8), EndAt: at(day, 18), IsBusy: i%3 == 0},
			models.CalendarBlock{StaffID: "s1", StartAt: at(day, 20), EndAt: at(day, 4), IsBusy: true},
		)
	}
	for _, w := range GenerateAvailabilityWindows(schedules, blocks, monday, 30) {
		if w.NetHours < 0 || w.NetHours > w.AvailableHours {
			t.Fatalf("net hours out of bounds on %s: %+v", w.Date.Format(DateLayout), w)
		}
		if w.BlockedHours > w.AvailableHours {
			t.Fatalf("blocked hours exceed available on %s: %+v", w.Date.Format(DateLayout), w)
		}
	}
}

func TestAnalyzeWorkload(t *testing.T) {
	schedules := append(weekdaySchedule("s1"), weekdaySchedule("s2")...)
	four := 4.0
	tickets := []models.Ticket{
		{ID: "t1", Priority: models.PriorityHigh, EstimatedHours: &four},
		{ID: "t2", Priority: models.PriorityMedium},
	}
	tasks := []models.Task{{ID: "k1"}}
	now := at(monday, 10)

	wl := AnalyzeWorkload("s1", schedules, nil, tickets, tasks, now)
	if wl.AvailableHoursWeek != 40 {
		t.Fatalf("expected 40h week, got %v", wl.AvailableHoursWeek)
	}
	if wl.QueuedHours != 7 {
		t.Fatalf("expected 7 queued hours, got %v", wl.QueuedHours)
	}
	if wl.HoursByPriority[models.PriorityHigh] != 4 || wl.HoursByPriority[models.PriorityMedium] != 2 {
		t.Fatalf("unexpected priority buckets: %+v", wl.HoursByPriority)
	}
	if wl.UtilizationPercent != 17.5 {
		t.Fatalf("expected 17.5%% utilization, got %v", wl.UtilizationPercent)
	}
	if !wl.CanTakeNewWork {
		t.Fatalf("expected staff to accept new work")
	}
	if wl.RecommendedCapacity != 82.5 {
		t.Fatalf("expected 82.5 recommended capacity, got %v", wl.RecommendedCapacity)
	}
	if wl.NextAvailableSlot == nil || !wl.NextAvailableSlot.Equal(now) {
		t.Fatalf("expected next slot now, got %v", wl.NextAvailableSlot)
	}
}

func TestAnalyzeWorkloadAllDayBlockToday(t *testing.T) {
	schedules := weekdaySchedule("s1")
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: monday, EndAt: monday.AddDate(0, 0, 1), AllDay: true, IsBusy: true},
	}
	wl := AnalyzeWorkload("s1", schedules, blocks, nil, nil, at(monday, 8))
	if wl.AvailableHoursToday != 0 {
		t.Fatalf("expected no hours today, got %v", wl.AvailableHoursToday)
	}
	if wl.AvailableHoursWeek != 40 {
		t.Fatalf("expected week capacity to ignore blocks, got %v", wl.AvailableHoursWeek)
	}
	if wl.CanTakeNewWork {
		t.Fatalf("expected no new work with zero hours today")
	}
	want := at(monday.AddDate(0, 0, 1), 9)
	if wl.NextAvailableSlot == nil || !wl.NextAvailableSlot.Equal(want) {
		t.Fatalf("expected next slot %s, got %v", want, wl.NextAvailableSlot)
	}
}

func TestAnalyzeWorkloadZeroWeekCapacitySaturates(t *testing.T) {
	tickets := []models.Ticket{{ID: "t1", Priority: models.PriorityLow}}
	wl := AnalyzeWorkload("s1", nil, nil, tickets, nil, at(monday, 10))
	if wl.UtilizationPercent != 100 {
		t.Fatalf("expected 100%% utilization, got %v", wl.UtilizationPercent)
	}
	if wl.CanTakeNewWork {
		t.Fatalf("expected saturated staff to refuse new work")
	}
	if wl.RecommendedCapacity != 0 {
		t.Fatalf("expected 0 recommended capacity, got %v", wl.RecommendedCapacity)
	}
	if wl.NextAvailableSlot != nil {
		t.Fatalf("expected no next slot without schedules")
	}
}

func TestAllDayBlockUsesConfiguredLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// A Berlin all-day block on Tuesday, as the store hands it back in UTC.
	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, berlin)
	blocks := []models.CalendarBlock{
		{StaffID: "s1", StartAt: tuesday.UTC(), EndAt: tuesday.AddDate(0, 0, 1).UTC(), AllDay: true, IsBusy: true},
	}
	from := time.Date(2026, 10, 19, 10, 0, 0, 0, berlin)

	windows := GenerateAvailabilityWindows(weekdaySchedule("s1"), blocks, from, 3)
	want := []float64{8, 0, 8}
	for i, w := range windows {
		if w.NetHours != want[i] {
			t.Fatalf("day %s: expected net %v, got %v", DateKey(w.Date), want[i], w.NetHours)
		}
	}

	busy := ResolveBusyHours(weekdaySchedule("s1"), blocks, from, 3)
	if got := busy.Busy("s1", from); got != 0 {
		t.Fatalf("expected monday free, got %v busy", got)
	}
	if got := busy.Busy("s1", tuesday); got != 8 {
		t.Fatalf("expected tuesday fully blocked, got %v", got)
	}
}
