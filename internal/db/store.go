package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

var ErrNotFound = errors.New("not found")

// OpenStatuses are the ticket statuses treated as queued work.
var OpenStatuses = []string{"new", "open", "in_progress", "pending_client"}

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetStaffSchedules(ctx context.Context, orgID string) ([]models.StaffSchedule, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT staff_id, organization_id, day_of_week, start_time, end_time, is_working_day
		FROM staff_schedules
		WHERE organization_id = $1
		ORDER BY staff_id, day_of_week`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StaffSchedule
	for rows.Next() {
		var sc models.StaffSchedule
		if err := rows.Scan(&sc.StaffID, &sc.OrganizationID, &sc.DayOfWeek, &sc.StartTime, &sc.EndTime, &sc.IsWorkingDay); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) GetBusyBlocks(ctx context.Context, staffIDs []string, from, to time.Time) ([]models.CalendarBlock, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, staff_id, COALESCE(title, ''), start_at, end_at, all_day, is_busy
		FROM calendar_events
		WHERE staff_id = ANY($1) AND is_busy AND start_at < $3 AND end_at > $2
		ORDER BY start_at`, staffIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CalendarBlock
	for rows.Next() {
		var b models.CalendarBlock
		if err := rows.Scan(&b.ID, &b.StaffID, &b.Title, &b.StartAt, &b.EndAt, &b.AllDay, &b.IsBusy); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const ticketColumns = `id, organization_id, assigned_to, subject, COALESCE(description, ''), COALESCE(category, ''),
	COALESCE(priority, ''), status, estimated_hours, COALESCE(queue_position, 0), created_at, resolved_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.OrganizationID, &t.AssigneeID, &t.Subject, &t.Description, &t.Category,
		&t.Priority, &t.Status, &t.EstimatedHours, &t.QueuePosition, &t.CreatedAt, &t.ResolvedAt)
	return t, err
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Ticket{}, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	}
	return t, err
}

// GetOpenTickets matches either the assignee or the organization.
func (s *Store) GetOpenTickets(ctx context.Context, assigneeOrOrgID string) ([]models.Ticket, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+ticketColumns+`
		FROM tickets
		WHERE status = ANY($2) AND (assigned_to = $1 OR organization_id = $1)
		ORDER BY created_at ASC, id ASC`, assigneeOrOrgID, OpenStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetOpenTasks(ctx context.Context, staffID string) ([]models.Task, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, assignee_id, title, status, estimated_hours
		FROM tasks
		WHERE assignee_id = $1 AND status NOT IN ('done', 'cancelled')`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.AssigneeID, &t.Title, &t.Status, &t.EstimatedHours); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetHistoricalTicketData(ctx context.Context, category string) ([]models.HistoricalTicketData, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, category, actual_hours
		FROM tickets
		WHERE category = $1 AND resolved_at IS NOT NULL AND actual_hours > 0
		ORDER BY resolved_at DESC
		LIMIT 200`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoricalTicketData
	for rows.Next() {
		var h models.HistoricalTicketData
		if err := rows.Scan(&h.TicketID, &h.Category, &h.ActualHours); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CountOpenTicketsByStatus(ctx context.Context, orgID string, statuses []string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE organization_id = $1 AND status = ANY($2)`, orgID, statuses).Scan(&n)
	return n, err
}

func (s *Store) HasActivePlan(ctx context.Context, orgID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM plan_assignments
			WHERE organization_id = $1 AND status = 'active'
			  AND (ends_at IS NULL OR ends_at > NOW())
		)`, orgID).Scan(&ok)
	return ok, err
}

// SaveCompletionEstimate replaces the ticket's completion estimate and
// backfills the ticket's hours when none were set.
func (s *Store) SaveCompletionEstimate(ctx context.Context, e models.CompletionEstimate) error {
	factors, _ := json.Marshal(e.Factors)
	snapshot, _ := json.Marshal(e.AvailabilitySnapshot)
	queue, _ := json.Marshal(e.Queue)

	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ticket_completion_estimates (
				id, ticket_id, organization_id, assignee_id, category, priority, start_date, completion_date,
				confidence_level, confidence_percent, base_hours, base_hours_source, estimated_hours,
				complexity_score, factors, availability_snapshot, queue, client_message, staff_breakdown, calculated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			ON CONFLICT (ticket_id) DO UPDATE SET
				id = EXCLUDED.id,
				assignee_id = EXCLUDED.assignee_id,
				category = EXCLUDED.category,
				priority = EXCLUDED.priority,
				start_date = EXCLUDED.start_date,
				completion_date = EXCLUDED.completion_date,
				confidence_level = EXCLUDED.confidence_level,
				confidence_percent = EXCLUDED.confidence_percent,
				base_hours = EXCLUDED.base_hours,
				base_hours_source = EXCLUDED.base_hours_source,
				estimated_hours = EXCLUDED.estimated_hours,
				complexity_score = EXCLUDED.complexity_score,
				factors = EXCLUDED.factors,
				availability_snapshot = EXCLUDED.availability_snapshot,
				queue = EXCLUDED.queue,
				client_message = EXCLUDED.client_message,
				staff_breakdown = EXCLUDED.staff_breakdown,
				calculated_at = EXCLUDED.calculated_at`,
			e.ID, e.TicketID, e.OrganizationID, e.AssigneeID, e.Category, e.Priority, e.StartDate, e.CompletionDate,
			e.ConfidenceLevel, e.ConfidencePercent, e.BaseHours, e.BaseHoursSource, e.EstimatedHours,
			e.ComplexityScore, factors, snapshot, queue, e.ClientMessage, e.StaffBreakdown, e.CalculatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE tickets SET estimated_hours = COALESCE(estimated_hours, $2) WHERE id = $1`, e.TicketID, e.EstimatedHours)
		return err
	})
}

func (s *Store) GetCompletionEstimate(ctx context.Context, ticketID string) (models.CompletionEstimate, error) {
	var (
		e                        models.CompletionEstimate
		factors, snapshot, queue []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, ticket_id, organization_id, assignee_id, category, priority, start_date, completion_date,
			confidence_level, confidence_percent, base_hours, base_hours_source, estimated_hours,
			complexity_score, factors, availability_snapshot, queue, client_message, staff_breakdown, calculated_at
		FROM ticket_completion_estimates WHERE ticket_id = $1`, ticketID).Scan(
		&e.ID, &e.TicketID, &e.OrganizationID, &e.AssigneeID, &e.Category, &e.Priority, &e.StartDate, &e.CompletionDate,
		&e.ConfidenceLevel, &e.ConfidencePercent, &e.BaseHours, &e.BaseHoursSource, &e.EstimatedHours,
		&e.ComplexityScore, &factors, &snapshot, &queue, &e.ClientMessage, &e.StaffBreakdown, &e.CalculatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CompletionEstimate{}, fmt.Errorf("completion estimate for %s: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return models.CompletionEstimate{}, err
	}
	if err := json.Unmarshal(factors, &e.Factors); err != nil {
		return models.CompletionEstimate{}, fmt.Errorf("decode factors: %w", err)
	}
	if err := json.Unmarshal(snapshot, &e.AvailabilitySnapshot); err != nil {
		return models.CompletionEstimate{}, fmt.Errorf("decode availability snapshot: %w", err)
	}
	if err := json.Unmarshal(queue, &e.Queue); err != nil {
		return models.CompletionEstimate{}, fmt.Errorf("decode queue: %w", err)
	}
	return e, nil
}

func (s *Store) SaveTicketEstimate(ctx context.Context, e models.TicketEstimate) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO ticket_estimates (
			id, ticket_id, organization_id, estimated_hours, estimated_cost_cents, estimated_completion_at,
			rationale, created_by, model_tag, confidence, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (ticket_id) DO UPDATE SET
			id = EXCLUDED.id,
			estimated_hours = EXCLUDED.estimated_hours,
			estimated_cost_cents = EXCLUDED.estimated_cost_cents,
			estimated_completion_at = EXCLUDED.estimated_completion_at,
			rationale = EXCLUDED.rationale,
			created_by = EXCLUDED.created_by,
			model_tag = EXCLUDED.model_tag,
			confidence = EXCLUDED.confidence,
			created_at = EXCLUDED.created_at`,
		e.ID, e.TicketID, e.OrganizationID, e.EstimatedHours, e.EstimatedCostCents, e.EstimatedCompletionAt,
		e.Rationale, e.CreatedBy, e.ModelTag, e.Confidence, e.CreatedAt)
	return err
}

// ImportAvailability replaces the weekly rows of every staff member present
// in schedules and appends the calendar blocks. Both land in one transaction
// so a failed block copy leaves the previous schedules in place.
func (s *Store) ImportAvailability(ctx context.Context, schedules []models.StaffSchedule, blocks []models.CalendarBlock) (int64, int64, error) {
	var nSchedules, nBlocks int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		if nSchedules, err = copySchedules(ctx, tx, schedules); err != nil {
			return fmt.Errorf("schedules: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}
		if nBlocks, err = copyCalendarBlocks(ctx, tx, blocks); err != nil {
			return fmt.Errorf("calendar blocks: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return nSchedules, nBlocks, nil
}

func copySchedules(ctx context.Context, tx pgx.Tx, schedules []models.StaffSchedule) (int64, error) {
	staff := map[string]struct{}{}
	ids := make([]string, 0)
	rows := make([][]any, 0, len(schedules))
	for _, sc := range schedules {
		if _, ok := staff[sc.StaffID]; !ok {
			staff[sc.StaffID] = struct{}{}
			ids = append(ids, sc.StaffID)
		}
		rows = append(rows, []any{sc.StaffID, sc.OrganizationID, sc.DayOfWeek, sc.StartTime, sc.EndTime, sc.IsWorkingDay})
	}
	if _, err := tx.Exec(ctx, `DELETE FROM staff_schedules WHERE staff_id = ANY($1)`, ids); err != nil {
		return 0, err
	}
	return tx.CopyFrom(ctx, pgx.Identifier{"staff_schedules"},
		[]string{"staff_id", "organization_id", "day_of_week", "start_time", "end_time", "is_working_day"},
		pgx.CopyFromRows(rows))
}

func copyCalendarBlocks(ctx context.Context, tx pgx.Tx, blocks []models.CalendarBlock) (int64, error) {
	rows := make([][]any, 0, len(blocks))
	for _, b := range blocks {
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows = append(rows, []any{id, b.StaffID, b.Title, b.StartAt, b.EndAt, b.AllDay, b.IsBusy})
	}
	return tx.CopyFrom(ctx, pgx.Identifier{"calendar_events"},
		[]string{"id", "staff_id", "title", "start_at", "end_at", "all_day", "is_busy"},
		pgx.CopyFromRows(rows))
}

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, status, started_at) VALUES ($1, $2, NOW())`, id, status)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	var r models.Run
	var summary []byte
	err := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Run{}, ErrNotFound
	}
	if err != nil {
		return models.Run{}, err
	}
	r.Summary = summary
	return r, nil
}
