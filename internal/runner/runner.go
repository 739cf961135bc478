// Package runner executes one named ingestion job and records its metadata.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/metrics"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/telemetry"
)

// finishTimeout bounds the bookkeeping done after a job returns.
const finishTimeout = 10 * time.Second

// Config controls Runner behavior.
type Config struct {
	// Topic receives completion events. Empty disables publishing.
	Topic string
}

// Runner looks up jobs in a registry and executes them.
type Runner struct {
	registry  *ingestion.Registry
	store     RunStore
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	cfg       Config
	tracer    trace.Tracer
	logger    *zap.Logger
}

// New constructs a Runner. publisher may be nil.
func New(
	registry *ingestion.Registry,
	store RunStore,
	publisher Publisher,
	clock Clock,
	ids IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		registry:  registry,
		store:     store,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		tracer:    telemetry.Tracer(),
		logger:    logging.OrNop(logger),
	}
}

// Run executes the named job. The fetch error, if any, is returned unchanged
// after the run has been marked failed or canceled.
func (r *Runner) Run(ctx context.Context, jobName string, params ingestion.Params) (Run, []ingestion.Record, error) {
	ctx, span := r.tracer.Start(ctx, "ingest.run", trace.WithAttributes(
		attribute.String("ingest.job", jobName),
		attribute.Int("ingest.since_days", params.SinceDays),
	))
	defer span.End()

	run, records, err := r.run(ctx, jobName, params)
	if run.ID != "" {
		span.SetAttributes(
			attribute.String("ingest.run_id", run.ID),
			attribute.String("ingest.status", string(run.Status)),
			attribute.Int("ingest.records", run.RecordCount),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return run, records, err
}

func (r *Runner) run(ctx context.Context, jobName string, params ingestion.Params) (Run, []ingestion.Record, error) {
	job, err := r.registry.Lookup(jobName)
	if err != nil {
		return Run{}, nil, err
	}
	if err := job.Validate(params); err != nil {
		return Run{}, nil, err
	}

	id, err := r.ids.NewID()
	if err != nil {
		return Run{}, nil, fmt.Errorf("generate run id: %w", err)
	}
	run := Run{
		ID:        id,
		Job:       job.Name,
		Subject:   params.Subject,
		SinceDays: params.SinceDays,
		StartedAt: r.clock.Now(),
		Status:    StatusRunning,
	}
	if err := r.store.StartRun(ctx, run); err != nil {
		return run, nil, fmt.Errorf("start run: %w", err)
	}

	log := r.logger.With(zap.String("run_id", run.ID), zap.String("job", run.Job))
	log.Info("ingestion run started",
		zap.String("subject", run.Subject),
		zap.Int("since_days", run.SinceDays),
	)

	records, fetchErr := job.Fetch(ctx, params)
	run.FinishedAt = r.clock.Now()
	run.Status, run.ErrorText = deriveFinalStatus(ctx, fetchErr)
	if fetchErr == nil {
		run.RecordCount = len(records)
	}

	// Bookkeeping runs even when ctx was canceled.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	finishErr := r.store.FinishRun(finishCtx, run)
	if finishErr != nil {
		log.Error("finish run failed", zap.Error(finishErr))
	}
	metrics.ObserveRun(run.Job, string(run.Status), run.RecordCount)
	r.publish(finishCtx, log, run)

	switch {
	case fetchErr != nil:
		log.Warn("ingestion run ended without records",
			zap.String("status", string(run.Status)),
			zap.Error(fetchErr),
		)
		return run, nil, fetchErr
	case finishErr != nil:
		return run, records, fmt.Errorf("finish run: %w", finishErr)
	}
	log.Info("ingestion run finished",
		zap.Int("records", run.RecordCount),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, records, nil
}

func (r *Runner) publish(ctx context.Context, log *zap.Logger, run Run) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	ev := Event{
		RunID:      run.ID,
		Job:        run.Job,
		Status:     run.Status,
		Records:    run.RecordCount,
		FinishedAt: run.FinishedAt,
		Error:      run.ErrorText,
	}
	msgID, err := r.publisher.Publish(ctx, r.cfg.Topic, ev)
	if err != nil {
		log.Error("publish run event failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	log.Debug("run event published", zap.String("topic", r.cfg.Topic), zap.String("message_id", msgID))
}

func deriveFinalStatus(ctx context.Context, err error) (Status, string) {
	if err == nil {
		return StatusSucceeded, ""
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return StatusCanceled, err.Error()
	}
	return StatusFailed, err.Error()
}
