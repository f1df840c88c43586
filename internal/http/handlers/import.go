package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

type ImportCounts struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
	Errors   int `json:"errors"`
}

type ImportSummary struct {
	Schedules      ImportCounts `json:"schedules"`
	CalendarBlocks ImportCounts `json:"calendar_blocks"`
	Errors         []string     `json:"errors"`
}

var weekdayNames = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

// @Summary Import schedules and calendar blocks
// @Description Upload staff_schedules CSV and an optional calendar_blocks CSV
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param schedules formData file true "schedules.csv"
// @Param calendar_blocks formData file false "calendar_blocks.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/schedules/import [post]
func (h *Handler) ImportSchedules(c *gin.Context) {
	schedulesFile, err := c.FormFile("schedules")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "schedules file required", nil)
		return
	}
	blocksFile, _ := c.FormFile("calendar_blocks")

	if !validateExt(schedulesFile.Filename) || (blocksFile != nil && !validateExt(blocksFile.Filename)) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	summary := ImportSummary{Errors: []string{}}

	schedules, errs := parseSchedulesCSV(schedulesFile)
	summary.Schedules.Parsed = len(schedules)
	summary.Schedules.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	var blocks []models.CalendarBlock
	if blocksFile != nil {
		blocks, errs = parseCalendarBlocksCSV(blocksFile)
		summary.CalendarBlocks.Parsed = len(blocks)
		summary.CalendarBlocks.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	nSchedules, nBlocks, err := h.Store.ImportAvailability(c.Request.Context(), schedules, blocks)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to import availability", err.Error())
		return
	}
	summary.Schedules.Inserted = int(nSchedules)
	summary.CalendarBlocks.Inserted = int(nBlocks)

	h.Logger.Info().
		Int("schedules", summary.Schedules.Inserted).
		Int("calendar_blocks", summary.CalendarBlocks.Inserted).
		Msg("schedules imported")
	c.JSON(http.StatusOK, summary)
}

func parseSchedulesCSV(file *multipart.FileHeader) ([]models.StaffSchedule, []string) {
	reader, closeFn, index, err := openCSV(file)
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer closeFn()

	var errors []string
	var out []models.StaffSchedule
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		staffID := getFieldAny(rec, index, "staff_id", "staff id", "user_id", "assignee_id")
		orgID := getFieldAny(rec, index, "organization_id", "organization id", "org_id")
		day, ok := parseWeekday(getFieldAny(rec, index, "day_of_week", "day of week", "weekday", "day"))
		start := getFieldAny(rec, index, "start_time", "start time", "start")
		end := getFieldAny(rec, index, "end_time", "end time", "end")
		working := parseBool(getFieldAny(rec, index, "is_working_day", "working", "working_day"), true)

		if staffID == "" || orgID == "" {
			errors = append(errors, fmt.Sprintf("line %d: staff_id and organization_id required", line))
			continue
		}
		if !ok {
			errors = append(errors, fmt.Sprintf("line %d: invalid day_of_week", line))
			continue
		}

		sc := models.StaffSchedule{
			StaffID:        staffID,
			OrganizationID: orgID,
			DayOfWeek:      day,
			StartTime:      start,
			EndTime:        end,
			IsWorkingDay:   working,
		}
		if working && sc.AvailableHours() == 0 {
			errors = append(errors, fmt.Sprintf("line %d: invalid start_time/end_time %q-%q", line, start, end))
			continue
		}
		out = append(out, sc)
	}
	return out, errors
}

func parseCalendarBlocksCSV(file *multipart.FileHeader) ([]models.CalendarBlock, []string) {
	reader, closeFn, index, err := openCSV(file)
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer closeFn()

	var errors []string
	var out []models.CalendarBlock
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		b := models.CalendarBlock{
			ID:      getFieldAny(rec, index, "id", "event_id"),
			StaffID: getFieldAny(rec, index, "staff_id", "staff id", "user_id"),
			Title:   getFieldAny(rec, index, "title", "summary"),
			AllDay:  parseBool(getFieldAny(rec, index, "all_day", "all day"), false),
			IsBusy:  parseBool(getFieldAny(rec, index, "is_busy", "busy"), true),
		}
		if b.StaffID == "" {
			errors = append(errors, fmt.Sprintf("line %d: staff_id required", line))
			continue
		}
		start, err1 := parseTimestamp(getFieldAny(rec, index, "start_at", "start", "starts_at"))
		end, err2 := parseTimestamp(getFieldAny(rec, index, "end_at", "end", "ends_at"))
		if err1 != nil || err2 != nil || !end.After(start) {
			errors = append(errors, fmt.Sprintf("line %d: invalid start_at/end_at", line))
			continue
		}
		b.StartAt, b.EndAt = start, end
		out = append(out, b)
	}
	return out, errors
}

func openCSV(file *multipart.FileHeader) (*csv.Reader, func(), map[string]int, error) {
	f, err := file.Open()
	if err != nil {
		return nil, nil, nil, err
	}
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("failed to read header")
	}
	return reader, func() { f.Close() }, headerIndex(headers), nil
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func parseWeekday(v string) (int, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, err := strconv.Atoi(v); err == nil {
		return n, n >= 0 && n <= 6
	}
	n, ok := weekdayNames[v]
	return n, ok
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y", "t":
		return true
	case "false", "0", "no", "n", "f":
		return false
	}
	return fallback
}

// parseTimestamp accepts RFC 3339 or a bare date (midnight UTC).
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
