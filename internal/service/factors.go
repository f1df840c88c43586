package service

import (
	"fmt"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

type FactorInput struct {
	Priority           string
	QueuePosition      int
	UtilizationPercent float64
	ComplexityScore    float64
}

// CalculateFactors applies each adjustment rule independently. Order is
// generation order, not importance.
func CalculateFactors(in FactorInput) []models.EstimationFactor {
	var out []models.EstimationFactor

	switch in.Priority {
	case models.PriorityCritical:
		out = append(out, models.EstimationFactor{
			Name:        "priority",
			Direction:   models.DirectionDecreases,
			Description: "Critical priority: prioritized immediately",
			Weight:      0.3,
		})
	case models.PriorityLow:
		out = append(out, models.EstimationFactor{
			Name:        "priority",
			Direction:   models.DirectionIncreases,
			Description: "Low priority: queued behind higher priority work",
			Weight:      0.2,
		})
	}

	if in.QueuePosition > 5 {
		out = append(out, models.EstimationFactor{
			Name:        "queue_depth",
			Direction:   models.DirectionIncreases,
			Description: fmt.Sprintf("%d tickets ahead in the queue", in.QueuePosition-1),
			Weight:      0.15 * float64(in.QueuePosition-1),
		})
	}

	if in.UtilizationPercent > 80 {
		out = append(out, models.EstimationFactor{
			Name:        "staff_utilization",
			Direction:   models.DirectionIncreases,
			Description: fmt.Sprintf("Assigned staff is heavily booked (%.0f%% utilized)", in.UtilizationPercent),
			Weight:      0.2,
		})
	}
	if in.UtilizationPercent < 50 {
		out = append(out, models.EstimationFactor{
			Name:        "staff_utilization",
			Direction:   models.DirectionDecreases,
			Description: fmt.Sprintf("Assigned staff has spare capacity (%.0f%% utilized)", in.UtilizationPercent),
			Weight:      0.15,
		})
	}

	if in.ComplexityScore > 0.7 {
		out = append(out, models.EstimationFactor{
			Name:        "complexity",
			Direction:   models.DirectionIncreases,
			Description: "High complexity work",
			Weight:      in.ComplexityScore * 0.3,
		})
	}
	if in.ComplexityScore < 0.3 {
		out = append(out, models.EstimationFactor{
			Name:        "complexity",
			Direction:   models.DirectionDecreases,
			Description: "Straightforward request",
			Weight:      (1 - in.ComplexityScore) * 0.2,
		})
	}
	return out
}
