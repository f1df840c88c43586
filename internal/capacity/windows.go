package capacity

import (
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const DefaultWindowDays = 14

// GenerateAvailabilityWindows builds one window per day starting at
// startDate for a single staff member's schedules and calendar blocks.
// Blocked hours come from all-day blocks covering the date or, failing
// that, from timed blocks that start on the date.
func GenerateAvailabilityWindows(schedules []models.StaffSchedule, blocks []models.CalendarBlock, startDate time.Time, days int) []models.AvailabilityWindow {
	if days <= 0 {
		days = DefaultWindowDays
	}
	loc := startDate.Location()
	start := DayStart(startDate)

	out := make([]models.AvailabilityWindow, 0, days)
	for i := 0; i < days; i++ {
		dayStart := start.AddDate(0, 0, i)
		dayEnd := start.AddDate(0, 0, i+1)
		available := weekdayHours(schedules, dayStart.Weekday())

		blocked := 0.0
		if coveredAllDay(blocks, dayStart, dayEnd, loc) {
			blocked = available
		} else {
			for _, b := range blocks {
				if !b.IsBusy || b.AllDay {
					continue
				}
				bs, be, ok := blockSpan(b, loc)
				if !ok || DateKey(bs) != DateKey(dayStart) {
					continue
				}
				blocked += overlapHours(bs, be, dayStart, dayEnd)
			}
		}
		if blocked > available {
			blocked = available
		}
		net := available - blocked
		if net < 0 {
			net = 0
		}
		out = append(out, models.AvailabilityWindow{
			Date:           dayStart,
			AvailableHours: available,
			BlockedHours:   blocked,
			NetHours:       net,
		})
	}
	return out
}

// weekdayHours reads the first schedule row for the weekday regardless of
// staff; callers pass one staff member's rows.
func weekdayHours(schedules []models.StaffSchedule, weekday time.Weekday) float64 {
	for _, s := range schedules {
		if s.DayOfWeek == int(weekday) {
			return s.AvailableHours()
		}
	}
	return 0
}

func coveredAllDay(blocks []models.CalendarBlock, dayStart, dayEnd time.Time, loc *time.Location) bool {
	for _, b := range blocks {
		if !b.IsBusy || !b.AllDay {
			continue
		}
		bs, be, ok := blockSpan(b, loc)
		if !ok {
			continue
		}
		if overlapHours(bs, be, dayStart, dayEnd) > 0 {
			return true
		}
	}
	return false
}
