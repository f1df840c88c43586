package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

const tracerName = "github.com/Kre8ivTech/client-portal-sub002/internal/service"

// CompletionService projects when a ticket will be done, based on who is
// assigned, what is queued in front of it and the assignee's calendar.
type CompletionService struct {
	Schedules  ScheduleStore
	Calendar   CalendarStore
	Tickets    TicketStore
	Sink       EstimateSink
	Classifier *classify.Classifier
	Estimator  ai.TextEstimator
	Config     Config
	Logger     zerolog.Logger
	Now        func() time.Time

	locks ticketLocks
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (s *CompletionService) rules() classify.RuleSet {
	if s.Classifier != nil && len(s.Classifier.Rules.Categories) > 0 {
		return s.Classifier.Rules
	}
	return classify.DefaultRules()
}

// EstimateTicket loads the ticket and estimates it.
func (s *CompletionService) EstimateTicket(ctx context.Context, ticketID string) (models.CompletionEstimate, error) {
	ticket, err := s.Tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return models.CompletionEstimate{}, err
		}
		return models.CompletionEstimate{}, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	return s.EstimateCompletion(ctx, ticket)
}

// EstimateCompletion runs the whole pipeline for one ticket. Read failures
// degrade to empty data. A non-nil error together with a populated estimate
// means only the save failed.
func (s *CompletionService) EstimateCompletion(ctx context.Context, ticket models.Ticket) (models.CompletionEstimate, error) {
	unlock := s.locks.lock(ticket.ID)
	defer unlock()

	cfg := s.Config.withDefaults()
	ctx, span := tracer().Start(ctx, "EstimateCompletion", trace.WithAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("organization.id", ticket.OrganizationID),
	))
	defer span.End()

	now := cfg.clock(s.Now)
	today := capacity.DayStart(now)
	log := s.Logger.With().Str("ticket_id", ticket.ID).Logger()

	schedules := s.loadSchedules(ctx, ticket.OrganizationID)
	staffIDs := capacity.StaffIDs(schedules)
	assigneeID := ""
	if ticket.AssigneeID != nil && strings.TrimSpace(*ticket.AssigneeID) != "" {
		assigneeID = *ticket.AssigneeID
		staffIDs = appendMissing(staffIDs, assigneeID)
	}
	blocks := s.loadBlocks(ctx, staffIDs, today, today.AddDate(0, 0, cfg.LookaheadDays))

	if assigneeID == "" {
		assigneeID = s.pickAssignee(ctx, staffIDs, schedules, blocks, now)
	}

	owner := assigneeID
	if owner == "" {
		owner = ticket.OrganizationID
	}
	openTickets := s.loadOpenTickets(ctx, owner)
	var openTasks []models.Task
	if assigneeID != "" {
		openTasks = s.loadOpenTasks(ctx, assigneeID)
	}

	position := ticket.QueuePosition
	if position <= 0 {
		position = QueueRank(ticket, openTickets)
	}

	category, priority, cls := s.resolveClassification(ctx, ticket)
	complexity := classify.ScoreComplexity(ticket.Subject, ticket.Description)

	ownSchedules := capacity.SchedulesFor(schedules, assigneeID)
	ownBlocks := capacity.BlocksFor(blocks, assigneeID)
	workload := capacity.AnalyzeWorkload(assigneeID, ownSchedules, ownBlocks, openTickets, openTasks, now)
	windows := capacity.GenerateAvailabilityWindows(ownSchedules, ownBlocks, now, cfg.AvailabilityWindowDays)

	base := s.baseHours(ctx, ticket, category, cfg)

	factors := CalculateFactors(FactorInput{
		Priority:           priority,
		QueuePosition:      position,
		UtilizationPercent: workload.UtilizationPercent,
		ComplexityScore:    complexity,
	})
	hoursAhead := HoursAheadInQueue(position, priority)

	_, walkSpan := tracer().Start(ctx, "WalkCompletion")
	walk := WalkCompletion(WalkInput{
		BaseHours:  base.Hours,
		HoursAhead: hoursAhead,
		Factors:    factors,
		Windows:    windows,
		Start:      now,
	})
	walkSpan.SetAttributes(attribute.Float64("hours.total", walk.TotalHoursNeeded), attribute.Bool("extrapolated", walk.Extrapolated))
	walkSpan.End()

	percent, level := ScoreConfidence(walk.AdjustedHours, factors, len(windows))
	queue := models.QueueMetadata{
		Position:           position,
		TicketsAhead:       position - 1,
		HoursAhead:         hoursAhead,
		UtilizationPercent: workload.UtilizationPercent,
	}

	estimate := models.CompletionEstimate{
		ID:                   uuid.NewString(),
		TicketID:             ticket.ID,
		OrganizationID:       ticket.OrganizationID,
		Category:             category,
		Priority:             priority,
		StartDate:            walk.StartDate,
		CompletionDate:       walk.CompletionDate,
		ConfidenceLevel:      level,
		ConfidencePercent:    percent,
		BaseHours:            base.Hours,
		BaseHoursSource:      base.Source,
		EstimatedHours:       walk.AdjustedHours,
		ComplexityScore:      complexity,
		Factors:              factors,
		AvailabilitySnapshot: windows,
		Queue:                queue,
		ClientMessage:        ClientMessage(priority, level, walk.CompletionDate),
		StaffBreakdown: StaffBreakdown(BreakdownInput{
			Base:              base,
			Walk:              walk,
			HoursAhead:        hoursAhead,
			Queue:             queue,
			Factors:           factors,
			Workload:          workload,
			ComplexityScore:   complexity,
			WindowDays:        len(windows),
			ConfidencePercent: percent,
			ConfidenceLevel:   level,
		}),
		CalculatedAt: now,
	}
	if assigneeID != "" {
		id := assigneeID
		estimate.AssigneeID = &id
	}
	if estimate.Factors == nil {
		estimate.Factors = []models.EstimationFactor{}
	}

	log.Debug().
		Str("category", category).
		Str("priority", priority).
		Str("classification_source", cls).
		Str("assignee_id", assigneeID).
		Float64("hours", walk.AdjustedHours).
		Int("confidence", percent).
		Msg("completion estimate computed")

	if s.Sink != nil {
		if err := s.Sink.SaveCompletionEstimate(ctx, estimate); err != nil {
			span.RecordError(err)
			log.Error().Err(err).Msg("save completion estimate")
			return estimate, fmt.Errorf("%w: %w", ErrEstimatePersist, err)
		}
	}
	return estimate, nil
}

// resolveClassification keeps the ticket's own category and priority when they are
// usable. Escalation triggers always win.
func (s *CompletionService) resolveClassification(ctx context.Context, ticket models.Ticket) (string, string, string) {
	ctx, span := tracer().Start(ctx, "Classify")
	defer span.End()

	rules := s.rules()
	_, knownCategory := rules.Lookup(ticket.Category)
	validPriority := models.ValidPriority(ticket.Priority)

	category, priority, source := ticket.Category, ticket.Priority, "ticket"
	if knownCategory {
		category = rules.NormalizeCategory(ticket.Category)
	}
	if !knownCategory || !validPriority {
		var cls classify.Classification
		if s.Classifier != nil {
			cls = s.Classifier.Classify(ctx, ticket.Subject, ticket.Description)
		} else {
			cls = classify.NewClassifier(rules, s.Estimator, s.Config.AITimeout, s.Logger).Classify(ctx, ticket.Subject, ticket.Description)
		}
		source = cls.Source
		if !knownCategory {
			category = cls.Category
		}
		if !validPriority {
			priority = cls.Priority
		}
	}
	if rules.EscalationCheck(ticket.Subject, ticket.Description).RequiresEscalation {
		priority = models.PriorityCritical
	}
	span.SetAttributes(attribute.String("category", category), attribute.String("priority", priority), attribute.String("source", source))
	return category, priority, source
}

func (s *CompletionService) baseHours(ctx context.Context, ticket models.Ticket, category string, cfg Config) BaseHours {
	ctx, span := tracer().Start(ctx, "ResolveBaseHours")
	defer span.End()

	history, err := s.Tickets.GetHistoricalTicketData(ctx, category)
	if err != nil {
		s.Logger.Warn().Err(err).Str("category", category).Msg("historical ticket data unavailable")
		history = nil
	}
	base := ResolveBaseHours(ctx, BaselineInput{
		Category:    category,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		History:     history,
		MinSamples:  cfg.HistoryMinSamples,
	}, s.rules(), s.Estimator, cfg.AITimeout)
	span.SetAttributes(attribute.Float64("hours", base.Hours), attribute.String("source", base.Source))
	return base
}

func (s *CompletionService) pickAssignee(ctx context.Context, staffIDs []string, schedules []models.StaffSchedule, blocks []models.CalendarBlock, now time.Time) string {
	ctx, span := tracer().Start(ctx, "PickAssignee")
	defer span.End()

	loads := make([]models.WorkloadAnalysis, 0, len(staffIDs))
	for _, id := range staffIDs {
		loads = append(loads, s.workload(ctx, id, schedules, blocks, now))
	}
	best, ok := PickAssignee(loads)
	if !ok {
		return ""
	}
	span.SetAttributes(attribute.String("assignee.id", best.StaffID))
	return best.StaffID
}

func (s *CompletionService) workload(ctx context.Context, staffID string, schedules []models.StaffSchedule, blocks []models.CalendarBlock, now time.Time) models.WorkloadAnalysis {
	return capacity.AnalyzeWorkload(staffID,
		capacity.SchedulesFor(schedules, staffID),
		capacity.BlocksFor(blocks, staffID),
		s.loadOpenTickets(ctx, staffID),
		s.loadOpenTasks(ctx, staffID),
		now)
}

// StaffWorkload snapshots one staff member's load.
func (s *CompletionService) StaffWorkload(ctx context.Context, orgID, staffID string) models.WorkloadAnalysis {
	cfg := s.Config.withDefaults()
	ctx, span := tracer().Start(ctx, "StaffWorkload", trace.WithAttributes(attribute.String("staff.id", staffID)))
	defer span.End()

	now := cfg.clock(s.Now)
	today := capacity.DayStart(now)
	schedules := s.loadSchedules(ctx, orgID)
	blocks := s.loadBlocks(ctx, []string{staffID}, today, today.AddDate(0, 0, capacity.MaxHorizonDays))
	return s.workload(ctx, staffID, schedules, blocks, now)
}

// StaffAvailability returns days of availability windows from today.
func (s *CompletionService) StaffAvailability(ctx context.Context, orgID, staffID string, days int) []models.AvailabilityWindow {
	cfg := s.Config.withDefaults()
	ctx, span := tracer().Start(ctx, "StaffAvailability", trace.WithAttributes(attribute.String("staff.id", staffID)))
	defer span.End()

	if days <= 0 {
		days = cfg.AvailabilityWindowDays
	}
	now := cfg.clock(s.Now)
	today := capacity.DayStart(now)
	schedules := capacity.SchedulesFor(s.loadSchedules(ctx, orgID), staffID)
	blocks := s.loadBlocks(ctx, []string{staffID}, today, today.AddDate(0, 0, days))
	return capacity.GenerateAvailabilityWindows(schedules, blocks, now, days)
}

func (s *CompletionService) loadSchedules(ctx context.Context, orgID string) []models.StaffSchedule {
	if s.Schedules == nil {
		return nil
	}
	schedules, err := s.Schedules.GetStaffSchedules(ctx, orgID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("organization_id", orgID).Msg("staff schedules unavailable")
		return nil
	}
	return schedules
}

func (s *CompletionService) loadBlocks(ctx context.Context, staffIDs []string, from, to time.Time) []models.CalendarBlock {
	if s.Calendar == nil || len(staffIDs) == 0 {
		return nil
	}
	blocks, err := s.Calendar.GetBusyBlocks(ctx, staffIDs, from, to)
	if err != nil {
		s.Logger.Warn().Err(err).Int("staff", len(staffIDs)).Msg("calendar blocks unavailable")
		return nil
	}
	return blocks
}

func (s *CompletionService) loadOpenTickets(ctx context.Context, owner string) []models.Ticket {
	tickets, err := s.Tickets.GetOpenTickets(ctx, owner)
	if err != nil {
		s.Logger.Warn().Err(err).Str("owner", owner).Msg("open tickets unavailable")
		return nil
	}
	return tickets
}

func (s *CompletionService) loadOpenTasks(ctx context.Context, staffID string) []models.Task {
	tasks, err := s.Tickets.GetOpenTasks(ctx, staffID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("staff_id", staffID).Msg("open tasks unavailable")
		return nil
	}
	return tasks
}

func appendMissing(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

// ticketLocks serializes estimation per ticket id. Entries are dropped once
// no caller holds or waits on them.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func (l *ticketLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*ticketLock{}
	}
	tl, ok := l.locks[id]
	if !ok {
		tl = &ticketLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
