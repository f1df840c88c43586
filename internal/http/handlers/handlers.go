package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/db"
	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
	"github.com/Kre8ivTech/client-portal-sub002/internal/service"
)

// Store is the part of the database the handlers talk to directly.
type Store interface {
	Ping(ctx context.Context) error
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	GetCompletionEstimate(ctx context.Context, ticketID string) (models.CompletionEstimate, error)
	CreateRun(ctx context.Context, status string) (string, error)
	FinishRun(ctx context.Context, runID string, status string, summary []byte) error
	GetLatestRun(ctx context.Context) (models.Run, error)
	ImportAvailability(ctx context.Context, schedules []models.StaffSchedule, blocks []models.CalendarBlock) (int64, int64, error)
}

type Handler struct {
	Store      Store
	Classifier *classify.Classifier
	Completion *service.CompletionService
	Heuristic  *service.HeuristicEstimateService
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

type ClassifyRequest struct {
	Subject     string `json:"subject" validate:"required,max=500"`
	Description string `json:"description" validate:"max=20000"`
}

type ClassifyResponse struct {
	Classification classify.Classification `json:"classification"`
	Escalation     classify.Escalation     `json:"escalation"`
	Complexity     float64                 `json:"complexity_score"`
}

type HeuristicRequest struct {
	CreatedBy string `json:"created_by" validate:"required"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Classify ticket text
// @Tags classify
// @Accept json
// @Produce json
// @Param body body ClassifyRequest true "Ticket text"
// @Success 200 {object} ClassifyResponse
// @Failure 400 {object} map[string]any
// @Router /api/classify [post]
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if !h.bind(c, &req) {
		return
	}
	rules := h.Classifier.Rules
	c.JSON(http.StatusOK, ClassifyResponse{
		Classification: h.Classifier.Classify(c.Request.Context(), req.Subject, req.Description),
		Escalation:     rules.EscalationCheck(req.Subject, req.Description),
		Complexity:     classify.ScoreComplexity(req.Subject, req.Description),
	})
}

// @Summary Estimate ticket completion
// @Description Runs the capacity-aware estimator and stores the result
// @Tags estimates
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} models.CompletionEstimate
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id}/estimate [post]
func (h *Handler) EstimateTicket(c *gin.Context) {
	id := c.Param("id")
	est, err := h.Completion.EstimateTicket(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		if errors.Is(err, service.ErrEstimatePersist) {
			h.Logger.Error().Err(err).Str("ticket_id", id).Msg("estimate not saved")
			c.JSON(http.StatusOK, gin.H{"estimate": est, "persisted": false})
			return
		}
		writeError(c, http.StatusInternalServerError, "ESTIMATE_ERROR", "Failed to estimate ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"estimate": est, "persisted": true})
}

// @Summary Latest completion estimate
// @Tags estimates
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} models.CompletionEstimate
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id}/estimate [get]
func (h *Handler) GetEstimate(c *gin.Context) {
	est, err := h.Store.GetCompletionEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No estimate for ticket", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load estimate", err.Error())
		return
	}
	c.JSON(http.StatusOK, est)
}

// @Summary Quick heuristic estimate
// @Tags estimates
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param body body HeuristicRequest true "Requester"
// @Success 200 {object} models.TicketEstimate
// @Router /api/tickets/{id}/heuristic-estimate [post]
func (h *Handler) HeuristicEstimate(c *gin.Context) {
	var req HeuristicRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	ticket, err := h.Store.GetTicket(ctx, c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	est, err := h.Heuristic.EstimateTicket(ctx, ticket, req.CreatedBy)
	if err != nil {
		h.Logger.Error().Err(err).Str("ticket_id", ticket.ID).Msg("heuristic estimate not saved")
		c.JSON(http.StatusOK, gin.H{"estimate": est, "persisted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"estimate": est, "persisted": true})
}

// @Summary Staff workload
// @Tags staff
// @Produce json
// @Param org path string true "Organization ID"
// @Param id path string true "Staff ID"
// @Success 200 {object} models.WorkloadAnalysis
// @Router /api/organizations/{org}/staff/{id}/workload [get]
func (h *Handler) StaffWorkload(c *gin.Context) {
	c.JSON(http.StatusOK, h.Completion.StaffWorkload(c.Request.Context(), c.Param("org"), c.Param("id")))
}

// @Summary Staff availability windows
// @Tags staff
// @Produce json
// @Param org path string true "Organization ID"
// @Param id path string true "Staff ID"
// @Param days query int false "Number of days (default 14)"
// @Success 200 {object} map[string]any
// @Router /api/organizations/{org}/staff/{id}/availability [get]
func (h *Handler) StaffAvailability(c *gin.Context) {
	// Absent days means the configured window.
	days := 0
	if raw, ok := c.GetQuery("days"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > capacity.MaxHorizonDays {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("days must be between 1 and %d", capacity.MaxHorizonDays), nil)
			return
		}
		days = n
	}
	windows := h.Completion.StaffAvailability(c.Request.Context(), c.Param("org"), c.Param("id"), days)
	c.JSON(http.StatusOK, gin.H{"items": windows})
}

// @Summary Recompute organization estimates
// @Tags estimates
// @Produce json
// @Param org path string true "Organization ID"
// @Success 200 {object} service.RecomputeSummary
// @Router /api/organizations/{org}/recompute [post]
func (h *Handler) Recompute(c *gin.Context) {
	ctx := c.Request.Context()
	runID, err := h.Store.CreateRun(ctx, "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	summary, err := h.Completion.RecomputeOrganization(ctx, c.Param("org"))
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	b, _ := json.Marshal(summary)
	if finishErr := h.Store.FinishRun(ctx, runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Msg("recompute failed")
		writeError(c, http.StatusInternalServerError, "RECOMPUTE_ERROR", "Recompute failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "summary": summary})
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return false
	}
	if h.Validator != nil {
		if err := h.Validator.Struct(req); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", err.Error())
			return false
		}
	}
	return true
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound) || errors.Is(err, service.ErrTicketNotFound)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
