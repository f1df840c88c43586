package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type RecomputeFailure struct {
	TicketID string `json:"ticket_id"`
	Error    string `json:"error"`
}

type RecomputeSummary struct {
	OrganizationID string             `json:"organization_id"`
	Events         []map[string]any   `json:"events"`
	Counts         map[string]int     `json:"counts"`
	Failures       []RecomputeFailure `json:"failures,omitempty"`
}

// RecomputeOrganization re-estimates every open ticket of orgID with
// bounded parallelism. Individual ticket failures are collected, not fatal.
func (s *CompletionService) RecomputeOrganization(ctx context.Context, orgID string) (RecomputeSummary, error) {
	cfg := s.Config.withDefaults()
	ctx, span := tracer().Start(ctx, "RecomputeOrganization", trace.WithAttributes(attribute.String("organization.id", orgID)))
	defer span.End()

	summary := RecomputeSummary{OrganizationID: orgID, Counts: map[string]int{}}
	start := time.Now()

	tickets, err := s.Tickets.GetOpenTickets(ctx, orgID)
	if err != nil {
		return summary, fmt.Errorf("list open tickets: %w", err)
	}
	summary.Events = append(summary.Events, map[string]any{
		"type":    "load",
		"message": "Open tickets ready for estimation",
		"count":   len(tickets),
		"time":    time.Now().UTC(),
	})

	var (
		mu            sync.Mutex
		estimated     int
		persistFailed int
		failed        int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.RecomputeConcurrency)
	for _, t := range tickets {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := s.EstimateCompletion(gctx, t)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				estimated++
			case errors.Is(err, ErrEstimatePersist):
				persistFailed++
				summary.Failures = append(summary.Failures, RecomputeFailure{TicketID: t.ID, Error: err.Error()})
			default:
				failed++
				summary.Failures = append(summary.Failures, RecomputeFailure{TicketID: t.ID, Error: err.Error()})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].TicketID < summary.Failures[j].TicketID
	})
	summary.Events = append(summary.Events, map[string]any{
		"type":       "estimate",
		"message":    "Estimates recomputed",
		"estimated":  estimated,
		"failed":     failed + persistFailed,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})
	summary.Counts["tickets"] = len(tickets)
	summary.Counts["estimated"] = estimated
	summary.Counts["persist_failed"] = persistFailed
	summary.Counts["failed"] = failed

	s.Logger.Info().
		Str("organization_id", orgID).
		Int("tickets", len(tickets)).
		Int("estimated", estimated).
		Int("failed", failed+persistFailed).
		Dur("elapsed", time.Since(start)).
		Msg("organization recompute finished")
	return summary, nil
}
