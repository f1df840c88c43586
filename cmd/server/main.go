package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Kre8ivTech/client-portal-sub002/internal/app"
	"github.com/Kre8ivTech/client-portal-sub002/internal/config"
	httpapi "github.com/Kre8ivTech/client-portal-sub002/internal/http"
	"github.com/Kre8ivTech/client-portal-sub002/internal/logging"
	"github.com/Kre8ivTech/client-portal-sub002/internal/telemetry"
)

const serviceName = "estimation-api"

// @title Completion Estimation API
// @version 1.0
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile, serviceName)
	shutdownTracing := telemetry.Setup(serviceName, logger)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	router := httpapi.Router(cfg, httpapi.Services{
		Store:      a.Store,
		Classifier: a.Classifier,
		Completion: a.Completion,
		Heuristic:  a.Heuristic,
	}, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: otelhttp.NewHandler(router, serviceName),
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	if err := shutdownTracing(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown")
	}
	logger.Info().Msg("server stopped")
}
