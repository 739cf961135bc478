// Package app wires long-lived services from Settings, acting as a dependency
// injection container for the CLI.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/clock/system"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/httpclient"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/id/uuid"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/publisher/pubsub"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/storage/memory"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/storage/postgres"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/telemetry"
)

// ServiceName identifies this process in traces.
const ServiceName = "growth-metrics-ingestion"

// App holds the services shared by every command.
type App struct {
	settings  config.Settings
	logger    *zap.Logger
	client    *httpclient.Client
	registry  *ingestion.Registry
	store     runner.RunStore
	publisher runner.Publisher
	runner    *runner.Runner
	closers   []func() error
}

// Option overrides a service that New would otherwise build from Settings.
type Option func(*options)

type options struct {
	store      runner.RunStore
	publisher  runner.Publisher
	clientOpts []httpclient.Option
}

// WithRunStore injects a run store. It is closed by App.Close if it
// implements io.Closer.
func WithRunStore(s runner.RunStore) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher injects a run event publisher. It is closed by App.Close if
// it implements io.Closer.
func WithPublisher(p runner.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithHTTPOptions passes options through to the HTTP client.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New builds the App. It fails fast when a configured backend cannot be
// initialized, releasing anything already opened.
func New(ctx context.Context, settings config.Settings, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{settings: settings, logger: logging.OrNop(logger)}

	tp, err := telemetry.InitTracerProvider(ctx, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.WithoutCancel(ctx)) })

	if err := a.initStore(ctx, o.store); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx, o.publisher); err != nil {
		a.Close()
		return nil, err
	}

	a.client = httpclient.New(settings, a.logger.Named("http"), o.clientOpts...)
	registry, err := NewRegistry(settings, a.client, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = registry
	a.runner = runner.New(
		registry,
		a.store,
		a.publisher,
		system.New(),
		uuid.New(),
		runner.Config{Topic: settings.PubSubTopic},
		a.logger.Named("runner"),
	)
	a.logger.Debug("application services initialized", zap.Int("jobs", len(registry.Jobs())))
	return a, nil
}

func (a *App) initStore(ctx context.Context, injected runner.RunStore) error {
	if injected != nil {
		a.store = injected
		a.addCloser(injected)
		return nil
	}
	switch a.settings.RunStore {
	case config.RunStorePostgres, "":
		store, err := postgres.NewRunStore(ctx, postgres.RunStoreConfig{DSN: a.settings.DatabaseURL})
		if err != nil {
			return fmt.Errorf("init postgres run store: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("init postgres run store: %w", err)
		}
		a.store = store
		a.logger.Info("using postgres run store", zap.String("table", postgres.DefaultTable))
	case config.RunStoreMemory:
		a.store = memory.NewRunStore()
		a.logger.Info("using in-memory run store; run history is discarded on exit")
	default:
		return fmt.Errorf("unknown run store: %s", a.settings.RunStore)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context, injected runner.Publisher) error {
	if injected != nil {
		a.publisher = injected
		a.addCloser(injected)
		return nil
	}
	if a.settings.PubSubProjectID == "" || a.settings.PubSubTopic == "" {
		a.logger.Debug("run event publishing disabled")
		return nil
	}
	pub, err := pubsub.Open(ctx, a.settings.PubSubProjectID, a.settings.PubSubTopic)
	if err != nil {
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.publisher = pub
	a.closers = append(a.closers, pub.Close)
	a.logger.Info("publishing run events", zap.String("topic", a.settings.PubSubTopic))
	return nil
}

func (a *App) addCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

// Settings returns the configuration snapshot the App was built from.
func (a *App) Settings() config.Settings { return a.settings }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Registry returns the registered ingestion jobs.
func (a *App) Registry() *ingestion.Registry { return a.registry }

// Runner returns the job runner.
func (a *App) Runner() *runner.Runner { return a.runner }

// Store returns the run store.
func (a *App) Store() runner.RunStore { return a.store }

// Close releases services in reverse order of creation and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
