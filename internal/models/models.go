package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const (
	DirectionIncreases = "increases"
	DirectionDecreases = "decreases"
)

const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ValidPriority reports whether p is one of the four known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// StaffSchedule is one weekday row of a staff member's recurring working hours.
type StaffSchedule struct {
	StaffID        string `json:"staff_id"`
	OrganizationID string `json:"organization_id"`
	DayOfWeek      int    `json:"day_of_week"` // 0=Sunday, 6=Saturday
	StartTime      string `json:"start_time"`  // HH:MM
	EndTime        string `json:"end_time"`    // HH:MM
	IsWorkingDay   bool   `json:"is_working_day"`
}

// AvailableHours derives the scheduled hours from the start/end strings.
// Non-working days and unparseable or inverted ranges yield 0.
func (s StaffSchedule) AvailableHours() float64 {
	if !s.IsWorkingDay {
		return 0
	}
	start, ok := parseClock(s.StartTime)
	if !ok {
		return 0
	}
	end, ok := parseClock(s.EndTime)
	if !ok {
		return 0
	}
	if end <= start {
		return 0
	}
	return float64(end-start) / 60
}

// StartMinutes returns the schedule start as minutes after midnight.
func (s StaffSchedule) StartMinutes() int {
	m, _ := parseClock(s.StartTime)
	return m
}

func parseClock(v string) (int, bool) {
	v = strings.TrimSpace(v)
	parts := strings.Split(v, ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	total := h*60 + m
	if total > 24*60 {
		return 0, false
	}
	return total, true
}

// CalendarBlock is an externally synced interval of time on a staff calendar.
type CalendarBlock struct {
	ID      string    `json:"id"`
	StaffID string    `json:"staff_id"`
	Title   string    `json:"title,omitempty"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	AllDay  bool      `json:"all_day"`
	IsBusy  bool      `json:"is_busy"`
}

type Ticket struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	AssigneeID     *string    `json:"assignee_id,omitempty"`
	Subject        string     `json:"subject"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	QueuePosition  int        `json:"queue_position"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

type Task struct {
	ID             string   `json:"id"`
	AssigneeID     string   `json:"assignee_id"`
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

type HistoricalTicketData struct {
	TicketID    string  `json:"ticket_id"`
	Category    string  `json:"category"`
	ActualHours float64 `json:"actual_hours"`
}

type WorkloadAnalysis struct {
	StaffID             string             `json:"staff_id"`
	AnalysisDate        time.Time          `json:"analysis_date"`
	OpenTickets         int                `json:"open_tickets"`
	OpenTasks           int                `json:"open_tasks"`
	QueuedHours         float64            `json:"queued_hours"`
	AvailableHoursToday float64            `json:"available_hours_today"`
	AvailableHoursWeek  float64            `json:"available_hours_week"`
	UtilizationPercent  float64            `json:"utilization_percent"`
	HoursByPriority     map[string]float64 `json:"hours_by_priority"`
	CanTakeNewWork      bool               `json:"can_take_new_work"`
	NextAvailableSlot   *time.Time         `json:"next_available_slot,omitempty"`
	RecommendedCapacity float64            `json:"recommended_capacity"`
}

type EstimationFactor struct {
	Name        string  `json:"name"`
	Direction   string  `json:"direction"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

type AvailabilityWindow struct {
	Date           time.Time `json:"date"`
	AvailableHours float64   `json:"available_hours"`
	BlockedHours   float64   `json:"blocked_hours"`
	NetHours       float64   `json:"net_hours"`
}

type QueueMetadata struct {
	Position           int     `json:"position"`
	TicketsAhead       int     `json:"tickets_ahead"`
	HoursAhead         float64 `json:"hours_ahead"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

type CompletionEstimate struct {
	ID                   string               `json:"id"`
	TicketID             string               `json:"ticket_id"`
	OrganizationID       string               `json:"organization_id"`
	AssigneeID           *string              `json:"assignee_id"`
	Category             string               `json:"category"`
	Priority             string               `json:"priority"`
	StartDate            time.Time            `json:"start_date"`
	CompletionDate       time.Time            `json:"completion_date"`
	ConfidenceLevel      string               `json:"confidence_level"`
	ConfidencePercent    int                  `json:"confidence_percent"`
	BaseHours            float64              `json:"base_hours"`
	BaseHoursSource      string               `json:"base_hours_source"`
	EstimatedHours       float64              `json:"estimated_hours"`
	ComplexityScore      float64              `json:"complexity_score"`
	Factors              []EstimationFactor   `json:"factors"`
	AvailabilitySnapshot []AvailabilityWindow `json:"availability_snapshot"`
	Queue                QueueMetadata        `json:"queue"`
	ClientMessage        string               `json:"client_message"`
	StaffBreakdown       string               `json:"staff_breakdown"`
	CalculatedAt         time.Time            `json:"calculated_at"`
}

type TicketEstimate struct {
	ID                    string    `json:"id"`
	TicketID              string    `json:"ticket_id"`
	OrganizationID        string    `json:"organization_id"`
	EstimatedHours        float64   `json:"estimated_hours"`
	EstimatedCostCents    *int64    `json:"estimated_cost_cents"`
	EstimatedCompletionAt time.Time `json:"estimated_completion_at"`
	Rationale             string    `json:"rationale"`
	CreatedBy             string    `json:"created_by"`
	ModelTag              string    `json:"model_tag"`
	Confidence            float64   `json:"confidence"`
	CreatedAt             time.Time `json:"created_at"`
}

type Run struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary,omitempty"`
}
