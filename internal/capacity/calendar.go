package capacity

import (
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	// MaxHorizonDays bounds how far ahead calendar blocks are resolved.
	MaxHorizonDays = 45
	DateLayout     = "2006-01-02"
)

type staffDay struct {
	staffID string
	date    string
}

// BusyMap holds busy hours per staff member per calendar day.
type BusyMap struct {
	hours map[staffDay]float64
}

func (b BusyMap) Busy(staffID string, date time.Time) float64 {
	if b.hours == nil {
		return 0
	}
	return b.hours[staffDay{staffID: staffID, date: DateKey(date)}]
}

func (b BusyMap) add(staffID string, date time.Time, hours float64) {
	b.hours[staffDay{staffID: staffID, date: DateKey(date)}] += hours
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ScheduledHours returns the hours staffID is scheduled to work on weekday.
// A missing weekday row means a non-working day.
func ScheduledHours(schedules []models.StaffSchedule, staffID string, weekday time.Weekday) float64 {
	s, ok := scheduleFor(schedules, staffID, weekday)
	if !ok {
		return 0
	}
	return s.AvailableHours()
}

func scheduleFor(schedules []models.StaffSchedule, staffID string, weekday time.Weekday) (models.StaffSchedule, bool) {
	for _, s := range schedules {
		if s.StaffID == staffID && s.DayOfWeek == int(weekday) {
			return s, true
		}
	}
	return models.StaffSchedule{}, false
}

// ResolveBusyHours computes busy hours per staff member and day for the
// days starting at from. Overlapping blocks are summed, not merged.
func ResolveBusyHours(schedules []models.StaffSchedule, blocks []models.CalendarBlock, from time.Time, days int) BusyMap {
	days = clampHorizon(days)
	busy := BusyMap{hours: map[staffDay]float64{}}
	start := DayStart(from)
	loc := from.Location()

	for _, b := range blocks {
		if !b.IsBusy {
			continue
		}
		bs, be, ok := blockSpan(b, loc)
		if !ok {
			continue
		}
		for i := 0; i < days; i++ {
			dayStart := start.AddDate(0, 0, i)
			dayEnd := start.AddDate(0, 0, i+1)
			overlap := overlapHours(bs, be, dayStart, dayEnd)
			if overlap <= 0 {
				continue
			}
			if b.AllDay {
				busy.add(b.StaffID, dayStart, ScheduledHours(schedules, b.StaffID, dayStart.Weekday()))
				continue
			}
			busy.add(b.StaffID, dayStart, overlap)
		}
	}
	return busy
}

// NetHours is the scheduled hours left after subtracting busy time, floored at 0.
func NetHours(schedules []models.StaffSchedule, busy BusyMap, staffID string, date time.Time) float64 {
	net := ScheduledHours(schedules, staffID, date.Weekday()) - busy.Busy(staffID, date)
	if net < 0 {
		return 0
	}
	return net
}

// blockSpan returns the block interval in loc. All-day blocks are widened
// to whole calendar days so an end timestamp inside the last day still
// covers it.
func blockSpan(b models.CalendarBlock, loc *time.Location) (time.Time, time.Time, bool) {
	if b.AllDay {
		localStart := b.StartAt.In(loc)
		localEnd := b.EndAt.In(loc)
		sy, sm, sd := localStart.Date()
		start := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
		ey, em, ed := localEnd.Date()
		end := time.Date(ey, em, ed, 0, 0, 0, 0, loc)
		if !localEnd.Equal(end) {
			end = end.AddDate(0, 0, 1)
		}
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
		return start, end, true
	}
	start := b.StartAt.In(loc)
	end := b.EndAt.In(loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func overlapHours(aStart, aEnd, bStart, bEnd time.Time) float64 {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

func clampHorizon(days int) int {
	if days < 1 {
		return 1
	}
	if days > MaxHorizonDays {
		return MaxHorizonDays
	}
	return days
}
