package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Kre8ivTech/client-portal-sub002/internal/app"
	"github.com/Kre8ivTech/client-portal-sub002/internal/config"
	"github.com/Kre8ivTech/client-portal-sub002/internal/logging"
	"github.com/Kre8ivTech/client-portal-sub002/internal/telemetry"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	verbose bool
	cfg     config.Config
	logger  zerolog.Logger

	shutdownTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:           "estimatectl",
	Short:         "Classify tickets and estimate their completion from the command line",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logging.New(level, cfg.LogFile, "estimatectl")
		shutdownTracing = telemetry.Setup("estimatectl", logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing == nil {
			return nil
		}
		return shutdownTracing(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(classifyCmd(), estimateCmd(), heuristicCmd(), recomputeCmd())
}

// withApp connects to the database for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
