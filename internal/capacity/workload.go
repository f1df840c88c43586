package capacity

import (
	"math"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	defaultTicketHours   = 2.0
	defaultTaskHours     = 1.0
	saturationPercent    = 80.0
	nextSlotLookaheadDay = 30
)

// AnalyzeWorkload snapshots how loaded staffID is. Today's hours respect
// calendar blocks; the weekly capacity is the schedule ceiling and ignores them.
func AnalyzeWorkload(staffID string, schedules []models.StaffSchedule, blocks []models.CalendarBlock, openTickets []models.Ticket, openTasks []models.Task, now time.Time) models.WorkloadAnalysis {
	own := filterSchedules(schedules, staffID)
	ownBlocks := filterBlocks(blocks, staffID)
	today := DayStart(now)

	busy := ResolveBusyHours(own, ownBlocks, today, 1)
	todayNet := NetHours(own, busy, staffID, today)

	week := 0.0
	for d := time.Sunday; d <= time.Saturday; d++ {
		week += ScheduledHours(own, staffID, d)
	}

	byPriority := map[string]float64{}
	queued := 0.0
	for _, t := range openTickets {
		h := defaultTicketHours
		if t.EstimatedHours != nil {
			h = *t.EstimatedHours
		}
		queued += h
		p := t.Priority
		if !models.ValidPriority(p) {
			p = models.PriorityMedium
		}
		byPriority[p] += h
	}
	for _, task := range openTasks {
		h := defaultTaskHours
		if task.EstimatedHours != nil {
			h = *task.EstimatedHours
		}
		queued += h
	}

	utilization := 100.0
	if week > 0 {
		utilization = math.Min(100, queued*100/week)
	}

	return models.WorkloadAnalysis{
		StaffID:             staffID,
		AnalysisDate:        today,
		OpenTickets:         len(openTickets),
		OpenTasks:           len(openTasks),
		QueuedHours:         queued,
		AvailableHoursToday: todayNet,
		AvailableHoursWeek:  week,
		UtilizationPercent:  utilization,
		HoursByPriority:     byPriority,
		CanTakeNewWork:      utilization < saturationPercent && todayNet > 0,
		NextAvailableSlot:   nextAvailableSlot(own, ownBlocks, staffID, now),
		RecommendedCapacity: math.Max(0, 100-utilization),
	}
}

func nextAvailableSlot(schedules []models.StaffSchedule, blocks []models.CalendarBlock, staffID string, now time.Time) *time.Time {
	today := DayStart(now)
	for i := 0; i < nextSlotLookaheadDay; i++ {
		day := today.AddDate(0, 0, i)
		s, ok := scheduleFor(schedules, staffID, day.Weekday())
		if !ok {
			continue
		}
		hours := s.AvailableHours()
		if hours <= 0 {
			continue
		}
		if coveredAllDay(blocks, day, day.AddDate(0, 0, 1), now.Location()) {
			continue
		}
		slot := day.Add(time.Duration(s.StartMinutes()) * time.Minute)
		if i == 0 {
			end := slot.Add(time.Duration(hours * float64(time.Hour)))
			if !now.Before(end) {
				continue
			}
			if slot.Before(now) {
				slot = now
			}
		}
		return &slot
	}
	return nil
}

func filterSchedules(schedules []models.StaffSchedule, staffID string) []models.StaffSchedule {
	out := make([]models.StaffSchedule, 0, 7)
	for _, s := range schedules {
		if s.StaffID == staffID {
			out = append(out, s)
		}
	}
	return out
}

func filterBlocks(blocks []models.CalendarBlock, staffID string) []models.CalendarBlock {
	out := make([]models.CalendarBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.StaffID == staffID {
			out = append(out, b)
		}
	}
	return out
}

// SchedulesFor returns staffID's rows from an organization-wide schedule list.
func SchedulesFor(schedules []models.StaffSchedule, staffID string) []models.StaffSchedule {
	return filterSchedules(schedules, staffID)
}

// BlocksFor returns staffID's calendar blocks.
func BlocksFor(blocks []models.CalendarBlock, staffID string) []models.CalendarBlock {
	return filterBlocks(blocks, staffID)
}

// StaffIDs lists the distinct staff ids in schedule order.
func StaffIDs(schedules []models.StaffSchedule) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, s := range schedules {
		if _, ok := seen[s.StaffID]; ok {
			continue
		}
		seen[s.StaffID] = struct{}{}
		ids = append(ids, s.StaffID)
	}
	return ids
}
