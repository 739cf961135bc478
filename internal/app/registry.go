package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion/apify"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion/ga4"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion/semrush"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion/typefully"
)

// NewRegistry registers every provider job against client.
func NewRegistry(settings config.Settings, client ingestion.JSONClient, logger *zap.Logger) (*ingestion.Registry, error) {
	reg := ingestion.NewRegistry()
	sources := [][]ingestion.Job{
		semrush.New(settings, client, logger).Jobs(),
		typefully.New(settings, client, logger).Jobs(),
		apify.New(settings, client, logger).Jobs(),
		ga4.New(settings, client, logger).Jobs(),
	}
	for _, jobs := range sources {
		for _, job := range jobs {
			if err := reg.Register(job); err != nil {
				return nil, fmt.Errorf("register %s: %w", job.Name, err)
			}
		}
	}
	return reg, nil
}
