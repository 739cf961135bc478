package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/metrics"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
)

// pushJobName groups pushed metrics on the Pushgateway.
const pushJobName = "growth_metrics_ingestion"

type runSummary struct {
	RunID      string             `json:"run_id"`
	Job        string             `json:"job"`
	Status     runner.Status      `json:"status"`
	Records    int                `json:"records"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Error      string             `json:"error,omitempty"`
	Data       []ingestion.Record `json:"data,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		subject      string
		sinceDays    int
		printRecords bool
	)
	cmd := &cobra.Command{
		Use:   "run JOB",
		Short: "Run one ingestion job",
		Long: `Runs the named ingestion job once, records the run, and prints a JSON
summary. Use "ingest jobs" to list job names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			run, records, runErr := appInstance.Runner().Run(cmd.Context(), args[0], ingestion.Params{
				Subject:   subject,
				SinceDays: sinceDays,
			})

			if url := appInstance.Settings().PushgatewayURL; url != "" {
				if err := metrics.Push(cmd.Context(), url, pushJobName); err != nil {
					logger.Warn("metrics push failed", zap.Error(err))
				}
			}

			if run.ID != "" {
				summary := runSummary{
					RunID:      run.ID,
					Job:        run.Job,
					Status:     run.Status,
					Records:    run.RecordCount,
					StartedAt:  run.StartedAt,
					FinishedAt: run.FinishedAt,
					Error:      run.ErrorText,
				}
				if printRecords {
					summary.Data = records
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
			}
			if runErr != nil {
				return fmt.Errorf("run %s: %w", args[0], runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "domain or account handle the job ingests")
	cmd.Flags().IntVar(&sinceDays, "since-days", ingestion.DefaultSinceDays, "lookback window in days")
	cmd.Flags().BoolVar(&printRecords, "print-records", false, "include ingested records in the summary")
	return cmd
}
