package service

import (
	"context"
	"sync"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

// monday is 2026-10-19.
var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func weekdaySchedule(staffID string) []models.StaffSchedule {
	var out []models.StaffSchedule
	for d := 1; d <= 5; d++ {
		out = append(out, models.StaffSchedule{StaffID: staffID, DayOfWeek: d, StartTime: "09:00", EndTime: "17:00", IsWorkingDay: true})
	}
	return out
}

func hoursPtr(h float64) *float64 { return &h }

type fakeStore struct {
	mu sync.Mutex

	schedules    []models.StaffSchedule
	schedulesErr error
	blocks       []models.CalendarBlock
	blocksErr    error
	tickets      map[string]models.Ticket
	open         map[string][]models.Ticket
	tasks        map[string][]models.Task
	history      []models.HistoricalTicketData
	openCount    int
	activePlan   bool

	saveErr      func(ticketID string) error
	onSave       func()
	completions  []models.CompletionEstimate
	estimates    []models.TicketEstimate
	countQueries [][]string
}

func (f *fakeStore) GetStaffSchedules(ctx context.Context, orgID string) ([]models.StaffSchedule, error) {
	return f.schedules, f.schedulesErr
}

func (f *fakeStore) GetBusyBlocks(ctx context.Context, staffIDs []string, from, to time.Time) ([]models.CalendarBlock, error) {
	return f.blocks, f.blocksErr
}

func (f *fakeStore) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return models.Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeStore) GetOpenTickets(ctx context.Context, owner string) ([]models.Ticket, error) {
	return f.open[owner], nil
}

func (f *fakeStore) GetOpenTasks(ctx context.Context, staffID string) ([]models.Task, error) {
	return f.tasks[staffID], nil
}

func (f *fakeStore) GetHistoricalTicketData(ctx context.Context, category string) ([]models.HistoricalTicketData, error) {
	return f.history, nil
}

func (f *fakeStore) CountOpenTicketsByStatus(ctx context.Context, orgID string, statuses []string) (int, error) {
	f.mu.Lock()
	f.countQueries = append(f.countQueries, statuses)
	f.mu.Unlock()
	return f.openCount, nil
}

func (f *fakeStore) HasActivePlan(ctx context.Context, orgID string) (bool, error) {
	return f.activePlan, nil
}

func (f *fakeStore) SaveCompletionEstimate(ctx context.Context, e models.CompletionEstimate) error {
	if f.onSave != nil {
		f.onSave()
	}
	if f.saveErr != nil {
		if err := f.saveErr(e.TicketID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, e)
	return nil
}

func (f *fakeStore) SaveTicketEstimate(ctx context.Context, e models.TicketEstimate) error {
	if f.onSave != nil {
		f.onSave()
	}
	if f.saveErr != nil {
		if err := f.saveErr(e.TicketID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates = append(f.estimates, e)
	return nil
}
