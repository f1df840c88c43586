package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/config"
	"github.com/Kre8ivTech/client-portal-sub002/internal/db"
	"github.com/Kre8ivTech/client-portal-sub002/internal/service"
)

// App holds the long-lived collaborators shared by the server and the CLI.
type App struct {
	Store      *db.Store
	Estimator  ai.TextEstimator
	Classifier *classify.Classifier
	Completion *service.CompletionService
	Heuristic  *service.HeuristicEstimateService
}

// NewClassifier builds the classifier alone, for callers without a database.
func NewClassifier(cfg config.Config, logger zerolog.Logger) (*classify.Classifier, ai.TextEstimator, error) {
	rules, err := classify.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load classifier rules: %w", err)
	}
	estimator := ai.New(cfg.AI())
	logger.Info().
		Str("provider", cfg.AIProvider).
		Int("categories", len(rules.Categories)).
		Msg("classifier ready")
	return classify.NewClassifier(rules, estimator, cfg.AITimeout, logger), estimator, nil
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	classifier, estimator, err := NewClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	est := cfg.Estimation()
	return &App{
		Store:      store,
		Estimator:  estimator,
		Classifier: classifier,
		Completion: &service.CompletionService{
			Schedules:  store,
			Calendar:   store,
			Tickets:    store,
			Sink:       store,
			Classifier: classifier,
			Estimator:  estimator,
			Config:     est,
			Logger:     logger.With().Str("component", "completion").Logger(),
		},
		Heuristic: &service.HeuristicEstimateService{
			Schedules: store,
			Calendar:  store,
			Tickets:   store,
			Plans:     store,
			Sink:      store,
			Config:    est,
			Logger:    logger.With().Str("component", "heuristic").Logger(),
		},
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}
