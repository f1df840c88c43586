package service

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const (
	HeuristicModelTag = "heuristic-v1"

	RationaleSchedules       = "Estimated from team schedules and calendar availability."
	RationaleDefaultCapacity = "Estimated using default capacity of 8 hours per day."

	defaultDailyCapacity = 8.0
	backlogHoursEach     = 1.5
	detailCharsPerHour   = 800
	maxDetailHours       = 6
)

// BacklogStatuses are the ticket statuses that count as queued work.
var BacklogStatuses = []string{"new", "open", "in_progress", "pending_client"}

var heuristicBaseHours = map[string]float64{
	models.PriorityCritical: 12,
	models.PriorityHigh:     8,
	models.PriorityMedium:   4,
	models.PriorityLow:      2,
}

// HeuristicHours is the ticket-creation estimate: a priority base plus one
// hour per 800 description characters, capped at 6.
func HeuristicHours(priority, description string) float64 {
	base, ok := heuristicBaseHours[priority]
	if !ok {
		base = 4
	}
	n := utf8.RuneCountInString(description)
	detail := math.Min(maxDetailHours, math.Ceil(float64(n)/detailCharsPerHour))
	return base + detail
}

// HeuristicEstimateService produces the first-pass estimate stored when a
// ticket is filed. It does not depend on who is assigned.
type HeuristicEstimateService struct {
	Schedules ScheduleStore
	Calendar  CalendarStore
	Tickets   TicketStore
	Plans     PlanStore
	Sink      EstimateSink
	Config    Config
	Logger    zerolog.Logger
	Now       func() time.Time

	locks ticketLocks
}

func (s *HeuristicEstimateService) EstimateTicket(ctx context.Context, ticket models.Ticket, createdBy string) (models.TicketEstimate, error) {
	unlock := s.locks.lock(ticket.ID)
	defer unlock()

	cfg := s.Config.withDefaults()
	ctx, span := tracer().Start(ctx, "HeuristicEstimate", trace.WithAttributes(attribute.String("ticket.id", ticket.ID)))
	defer span.End()

	now := cfg.clock(s.Now)
	hours := HeuristicHours(ticket.Priority, ticket.Description)

	estimate := models.TicketEstimate{
		ID:             uuid.NewString(),
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		EstimatedHours: hours,
		CreatedBy:      createdBy,
		ModelTag:       HeuristicModelTag,
		CreatedAt:      now,
	}
	if !s.hasActivePlan(ctx, ticket.OrganizationID) {
		cost := int64(math.Round(hours * float64(cfg.DefaultRateCents)))
		estimate.EstimatedCostCents = &cost
	}

	backlog := float64(s.backlogCount(ctx, ticket.OrganizationID)) * backlogHoursEach
	total := hours + backlog
	estimate.EstimatedCompletionAt, estimate.Rationale, estimate.Confidence = s.completionAt(ctx, ticket.OrganizationID, total, now, cfg.LookaheadDays)

	span.SetAttributes(attribute.Float64("hours", hours), attribute.Float64("hours.total", total))
	if s.Sink != nil {
		if err := s.Sink.SaveTicketEstimate(ctx, estimate); err != nil {
			span.RecordError(err)
			s.Logger.Error().Err(err).Str("ticket_id", ticket.ID).Msg("save ticket estimate")
			return estimate, fmt.Errorf("%w: %w", ErrEstimatePersist, err)
		}
	}
	return estimate, nil
}

// completionAt walks the organization's combined daily capacity forward
// until total hours are covered.
func (s *HeuristicEstimateService) completionAt(ctx context.Context, orgID string, total float64, now time.Time, lookahead int) (time.Time, string, float64) {
	var schedules []models.StaffSchedule
	if s.Schedules != nil {
		var err error
		schedules, err = s.Schedules.GetStaffSchedules(ctx, orgID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("organization_id", orgID).Msg("staff schedules unavailable")
			schedules = nil
		}
	}
	if len(schedules) == 0 {
		days := int(math.Ceil(total / defaultDailyCapacity))
		return now.AddDate(0, 0, days), RationaleDefaultCapacity, 0.4
	}

	today := capacity.DayStart(now)
	var blocks []models.CalendarBlock
	if s.Calendar != nil {
		var err error
		blocks, err = s.Calendar.GetBusyBlocks(ctx, capacity.StaffIDs(schedules), today, today.AddDate(0, 0, lookahead))
		if err != nil {
			s.Logger.Warn().Err(err).Str("organization_id", orgID).Msg("calendar blocks unavailable")
			blocks = nil
		}
	}
	busy := capacity.ResolveBusyHours(schedules, blocks, today, lookahead)

	covered := 0.0
	for i := 0; i < lookahead; i++ {
		day := today.AddDate(0, 0, i)
		for _, row := range schedules {
			if !row.IsWorkingDay || row.DayOfWeek != int(day.Weekday()) {
				continue
			}
			covered += math.Max(0, row.AvailableHours()-busy.Busy(row.StaffID, day))
		}
		if covered >= total {
			return day.AddDate(0, 0, 1).Add(-time.Second), RationaleSchedules, 0.6
		}
	}
	return now.AddDate(0, 0, lookahead),
		fmt.Sprintf("Estimated beyond the scheduling horizon; the team is fully booked for the next %d days.", lookahead),
		0.3
}

func (s *HeuristicEstimateService) hasActivePlan(ctx context.Context, orgID string) bool {
	if s.Plans == nil {
		return false
	}
	ok, err := s.Plans.HasActivePlan(ctx, orgID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("organization_id", orgID).Msg("plan lookup failed")
		return false
	}
	return ok
}

func (s *HeuristicEstimateService) backlogCount(ctx context.Context, orgID string) int {
	if s.Tickets == nil {
		return 0
	}
	n, err := s.Tickets.CountOpenTicketsByStatus(ctx, orgID, BacklogStatuses)
	if err != nil {
		s.Logger.Warn().Err(err).Str("organization_id", orgID).Msg("backlog count failed")
		return 0
	}
	return n
}
