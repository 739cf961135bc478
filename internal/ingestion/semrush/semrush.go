// Package semrush ingests keyword and backlink data for a domain from the
// Semrush API.
package semrush

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
)

// Job names registered by this package.
const (
	JobKeywords  = "semrush.keywords"
	JobBacklinks = "semrush.backlinks"
)

// BaseURL is the Semrush analytics endpoint.
const BaseURL = "https://api.semrush.com/"

// Source fetches Semrush data. Endpoints are not wired yet; fetches return no
// records.
type Source struct {
	apiKey string
	client ingestion.JSONClient
	logger *zap.Logger
}

// New builds a Source from settings.
func New(settings config.Settings, client ingestion.JSONClient, logger *zap.Logger) *Source {
	return &Source{
		apiKey: settings.SemrushAPIKey,
		client: client,
		logger: logging.OrNop(logger).Named("semrush"),
	}
}

// FetchKeywords returns organic keyword rows for domain.
func (s *Source) FetchKeywords(_ context.Context, domain string, sinceDays int) ([]ingestion.Record, error) {
	s.checkKey("keywords", domain, sinceDays)
	return []ingestion.Record{}, nil
}

// FetchBacklinks returns backlink rows for domain.
func (s *Source) FetchBacklinks(_ context.Context, domain string, sinceDays int) ([]ingestion.Record, error) {
	s.checkKey("backlinks", domain, sinceDays)
	return []ingestion.Record{}, nil
}

// Jobs exposes the source's fetches for registration.
func (s *Source) Jobs() []ingestion.Job {
	return []ingestion.Job{
		{
			Name:         JobKeywords,
			Description:  "Semrush organic keywords for a domain",
			NeedsSubject: true,
			Fetch: func(ctx context.Context, p ingestion.Params) ([]ingestion.Record, error) {
				return s.FetchKeywords(ctx, p.Subject, p.SinceDays)
			},
		},
		{
			Name:         JobBacklinks,
			Description:  "Semrush backlinks for a domain",
			NeedsSubject: true,
			Fetch: func(ctx context.Context, p ingestion.Params) ([]ingestion.Record, error) {
				return s.FetchBacklinks(ctx, p.Subject, p.SinceDays)
			},
		},
	}
}

func (s *Source) checkKey(report, domain string, sinceDays int) {
	if s.apiKey == "" {
		s.logger.Warn("SEMRUSH_API_KEY not set; returning no records",
			zap.String("report", report),
			zap.String("domain", domain),
			zap.Int("since_days", sinceDays),
		)
	}
}
