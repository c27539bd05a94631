package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"trackerql/internal/app"
	"trackerql/internal/config"
	"trackerql/internal/engine"
)

func newExplainCmd() *cobra.Command {
	var (
		requestFile  string
		metadataFile string
		driver       string
		dsn          string
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Run EXPLAIN ANALYZE for a request and print the plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if !cmd.Flags().Changed("driver") {
				driver = cfg.DatabaseDriver
			}
			if !cmd.Flags().Changed("dsn") {
				dsn = cfg.DatabaseURL
			}
			req, err := readRequest(cmd, requestFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			meta, err := openMetadata(ctx, metadataPath(cfg, metadataFile), metadataFile)
			if err != nil {
				return err
			}
			defer meta.Close()

			analyticsDB, err := engine.Open(ctx, driver, dsn)
			if err != nil {
				return err
			}
			defer analyticsDB.Close() //nolint:errcheck

			logger := newLogger(cmd, cfg)
			a, err := app.New(app.Deps{Cfg: cfg, AnalyticsDB: analyticsDB, MetaDB: meta.read, Logger: logger})
			if err != nil {
				return err
			}
			defer a.Close()

			req.AnalyzeOnly = true
			if req.ExplainKey == "" {
				req.ExplainKey = uuid.NewString()
			}
			if _, err := a.Analytics.Query(ctx, req); err != nil {
				return err
			}

			plans := a.Plans.GetExecutionPlans(req.ExplainKey)
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"key": req.ExplainKey, "plans": plans})
			}
			out := cmd.OutOrStdout()
			for _, p := range plans {
				if p.Error != "" {
					fmt.Fprintf(out, "error: %s\n", p.Error)
					continue
				}
				fmt.Fprintf(out, "planning %.3f ms, execution %.3f ms, total %.3f ms\n", p.PlanningTime, p.ExecutionTime, p.TimeInMillis)
				if err := printJSON(out, p.Plan); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "-", "Request file (YAML or JSON), - for stdin")
	cmd.Flags().StringVar(&metadataFile, "metadata", "", "Metadata fixture to load into a temporary catalog")
	cmd.Flags().StringVar(&driver, "driver", engine.DriverPostgres, "Analytics database driver (postgres, duckdb)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Analytics database connection string (default $DATABASE_URL)")
	return cmd
}
