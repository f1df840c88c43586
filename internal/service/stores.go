package service

import (
	"context"
	"errors"
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrEstimatePersist = errors.New("estimate could not be saved")
)

type ScheduleStore interface {
	GetStaffSchedules(ctx context.Context, orgID string) ([]models.StaffSchedule, error)
}

type CalendarStore interface {
	GetBusyBlocks(ctx context.Context, staffIDs []string, from, to time.Time) ([]models.CalendarBlock, error)
}

// TicketStore is the read side of tickets. GetOpenTickets accepts either a
// staff id or an organization id.
type TicketStore interface {
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	GetOpenTickets(ctx context.Context, assigneeOrOrgID string) ([]models.Ticket, error)
	GetOpenTasks(ctx context.Context, staffID string) ([]models.Task, error)
	GetHistoricalTicketData(ctx context.Context, category string) ([]models.HistoricalTicketData, error)
	CountOpenTicketsByStatus(ctx context.Context, orgID string, statuses []string) (int, error)
}

type PlanStore interface {
	HasActivePlan(ctx context.Context, orgID string) (bool, error)
}

// EstimateSink persists one estimate per ticket; later writes replace earlier ones.
type EstimateSink interface {
	SaveCompletionEstimate(ctx context.Context, e models.CompletionEstimate) error
	SaveTicketEstimate(ctx context.Context, e models.TicketEstimate) error
}
