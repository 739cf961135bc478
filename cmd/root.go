// Package cmd defines the CLI commands for the ingest executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/app"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/httpclient"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// annotationNoApp marks commands that run without settings or services.
const annotationNoApp = "ingest/no-app"

// App is the subset of *app.App the commands use.
type App interface {
	Close()
	Logger() *zap.Logger
	Settings() config.Settings
	Registry() *ingestion.Registry
	Runner() *runner.Runner
	Store() runner.RunStore
}

// deps are the factories used by the root command. Tests replace them.
type deps struct {
	loadSettings func(path string) (config.Settings, error)
	newLogger    func(cfg logging.Config) (*zap.Logger, error)
	newApp       func(ctx context.Context, s config.Settings, logger *zap.Logger) (App, error)
}

func defaultDeps() deps {
	return deps{
		loadSettings: config.Load,
		newLogger:    logging.New,
		newApp: func(ctx context.Context, s config.Settings, logger *zap.Logger) (App, error) {
			return app.New(ctx, s, logger)
		},
	}
}

// newRootCmd creates and configures the root command. The returned func
// closes the App if one was opened; PersistentPostRun is skipped when a
// command fails, so callers must invoke it after Execute.
func newRootCmd(d deps) (*cobra.Command, func()) {
	var (
		cfgFile string
		opened  App
	)
	closeApp := func() {
		if opened != nil {
			opened.Close()
			opened = nil
		}
	}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull growth metrics from third-party analytics APIs.",
		Long: `ingest runs data-ingestion jobs against Semrush, Typefully, Apify and
GA4. Every outbound call goes through a retrying HTTP client; each run is
recorded in the run store and optionally announced on Pub/Sub.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoApp] == "true" {
				return nil
			}
			settings, err := d.loadSettings(cfgFile)
			if err != nil {
				return err
			}
			logger, err := d.newLogger(logging.Config{
				Development: settings.LogDevelopment,
				Level:       settings.LogLevel,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logSettings(logger, settings)

			appInstance, err := d.newApp(cmd.Context(), settings, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			opened = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			closeApp()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional config file (yaml, toml or json); environment wins")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newRunsCmd())
	return cmd, closeApp
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, closeApp := newRootCmd(defaultDeps())
	err := root.ExecuteContext(ctx)
	closeApp()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// logSettings records the effective configuration without secrets.
func logSettings(logger *zap.Logger, s config.Settings) {
	logger.Info("configuration loaded",
		zap.Int("http_timeout_seconds", s.HTTPTimeoutSeconds),
		zap.Float64("backoff_base_seconds", s.BackoffBaseSeconds),
		zap.Int("http_max_retries", s.HTTPMaxRetries),
		zap.Int("http_max_attempts", httpclient.DefaultMaxAttempts),
		zap.Float64("http_rate_limit_rps", s.HTTPRateLimitRPS),
		zap.String("run_store", s.RunStore),
		zap.Bool("semrush_key_set", s.SemrushAPIKey != ""),
		zap.Bool("typefully_key_set", s.TypefullyAPIKey != ""),
		zap.Bool("apify_token_set", s.ApifyToken != ""),
		zap.Bool("ga4_key_set", s.GA4JSONKeyB64 != ""),
		zap.Bool("pubsub_enabled", s.PubSubTopic != ""),
		zap.Bool("pushgateway_enabled", s.PushgatewayURL != ""),
	)
	if s.HTTPMaxRetries != httpclient.DefaultMaxAttempts-1 {
		logger.Debug("HTTP_MAX_RETRIES does not change the attempt ceiling",
			zap.Int("http_max_retries", s.HTTPMaxRetries),
			zap.Int("http_max_attempts", httpclient.DefaultMaxAttempts),
		)
	}
}
