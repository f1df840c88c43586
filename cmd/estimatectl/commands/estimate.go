package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Kre8ivTech/client-portal-sub002/internal/app"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/service"
)

func classifyCmd() *cobra.Command {
	var subject, description string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify ticket text without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			classifier, _, err := app.NewClassifier(cfg, logger)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"classification":   classifier.Classify(cmd.Context(), subject, description),
				"escalation":       classifier.Rules.EscalationCheck(subject, description),
				"complexity_score": classify.ScoreComplexity(subject, description),
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "ticket subject")
	cmd.Flags().StringVar(&description, "description", "", "ticket description")
	return cmd
}

func estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <ticket-id>",
		Short: "Run the capacity-aware completion estimate for one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				est, err := a.Completion.EstimateTicket(ctx, args[0])
				if err != nil && !errors.Is(err, service.ErrEstimatePersist) {
					return err
				}
				if err != nil {
					logger.Warn().Err(err).Msg("estimate computed but not saved")
				}
				return writeJSON(cmd.OutOrStdout(), est)
			})
		},
	}
}

func heuristicCmd() *cobra.Command {
	var createdBy string
	cmd := &cobra.Command{
		Use:   "heuristic <ticket-id>",
		Short: "Produce the quick cost and date estimate for one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ticket, err := a.Store.GetTicket(ctx, args[0])
				if err != nil {
					return err
				}
				est, err := a.Heuristic.EstimateTicket(ctx, ticket, createdBy)
				if err != nil {
					logger.Warn().Err(err).Msg("estimate computed but not saved")
				}
				return writeJSON(cmd.OutOrStdout(), est)
			})
		},
	}
	cmd.Flags().StringVar(&createdBy, "created-by", "estimatectl", "user recorded on the estimate")
	return cmd
}

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <organization-id>",
		Short: "Re-estimate every open ticket of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.Completion.RecomputeOrganization(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}
