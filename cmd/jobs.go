package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/app"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
)

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "jobs",
		Short:       "List the registered ingestion jobs",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := app.NewRegistry(config.Settings{}, nil, zap.NewNop())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tSUBJECT\tDESCRIPTION")
			for _, j := range reg.Jobs() {
				subject := "-"
				if j.NeedsSubject {
					subject = "required"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", j.Name, subject, j.Description)
			}
			return w.Flush()
		},
	}
}

func newRunsCmd() *cobra.Command {
	var (
		job   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := appInstance.Store().ListRuns(cmd.Context(), job, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tJOB\tSTATUS\tRECORDS\tSTARTED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Job, r.Status, r.RecordCount, r.StartedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "only show runs of this job")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show (0 for all)")
	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one ingestion run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			r, err := appInstance.Store().GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get run %s: %w", args[0], err)
			}

			subject := r.Subject
			if subject == "" {
				subject = "-"
			}
			finished, duration := "-", "-"
			if r.Status.Terminal() {
				finished = r.FinishedAt.Format(time.RFC3339)
				duration = r.FinishedAt.Sub(r.StartedAt).String()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "RUN\t%s\n", r.ID)
			fmt.Fprintf(w, "JOB\t%s\n", r.Job)
			fmt.Fprintf(w, "SUBJECT\t%s\n", subject)
			fmt.Fprintf(w, "SINCE_DAYS\t%d\n", r.SinceDays)
			fmt.Fprintf(w, "STATUS\t%s\n", r.Status)
			fmt.Fprintf(w, "RECORDS\t%d\n", r.RecordCount)
			fmt.Fprintf(w, "STARTED\t%s\n", r.StartedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "FINISHED\t%s\n", finished)
			fmt.Fprintf(w, "DURATION\t%s\n", duration)
			if r.ErrorText != "" {
				fmt.Fprintf(w, "ERROR\t%s\n", r.ErrorText)
			}
			return w.Flush()
		},
	}
}
