package service

import (
	"sort"
	"strings"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

// PickAssignee returns the least utilized staff member. Ties go to the
// lowest staff id so repeated runs agree.
func PickAssignee(loads []models.WorkloadAnalysis) (models.WorkloadAnalysis, bool) {
	if len(loads) == 0 {
		return models.WorkloadAnalysis{}, false
	}
	sorted := make([]models.WorkloadAnalysis, len(loads))
	copy(sorted, loads)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UtilizationPercent == sorted[j].UtilizationPercent {
			return sorted[i].StaffID < sorted[j].StaffID
		}
		return sorted[i].UtilizationPercent < sorted[j].UtilizationPercent
	})
	return sorted[0], true
}

var priorityRank = map[string]int{
	models.PriorityCritical: 0,
	models.PriorityHigh:     1,
	models.PriorityMedium:   2,
	models.PriorityLow:      3,
}

func rankOf(priority string) int {
	if r, ok := priorityRank[strings.ToLower(priority)]; ok {
		return r
	}
	return priorityRank[models.PriorityMedium]
}

// ticketBefore orders open work: higher priority first, then oldest, then id.
func ticketBefore(a, b models.Ticket) bool {
	ra, rb := rankOf(a.Priority), rankOf(b.Priority)
	if ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// QueueRank is ticket's 1-based position among open, treating ticket as
// queued even when it is not in the list.
func QueueRank(ticket models.Ticket, open []models.Ticket) int {
	pos := 1
	for _, o := range open {
		if o.ID == ticket.ID {
			continue
		}
		if ticketBefore(o, ticket) {
			pos++
		}
	}
	return pos
}
