package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trackerql/internal/app"
	"trackerql/internal/config"
)

func newCompileCmd() *cobra.Command {
	var (
		requestFile  string
		metadataFile string
		noOptimize   bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SQL and bind parameters for a request",
		Long:  "Resolves a request file against the metadata catalog and prints the generated SQL with its positional bind parameters. Nothing is sent to the analytics database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if noOptimize {
				cfg.CTEOptimizerEnabled = false
			}
			req, err := readRequest(cmd, requestFile)
			if err != nil {
				return err
			}

			meta, err := openMetadata(cmd.Context(), metadataPath(cfg, metadataFile), metadataFile)
			if err != nil {
				return err
			}
			defer meta.Close()

			a, err := app.New(app.Deps{Cfg: cfg, MetaDB: meta.read, Logger: newLogger(cmd, cfg)})
			if err != nil {
				return err
			}
			defer a.Close()

			compiled, err := a.Analytics.Compile(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				params := compiled.Params
				if params == nil {
					params = []any{}
				}
				return printJSON(out, map[string]any{
					"sql":     compiled.SQL,
					"params":  params,
					"headers": compiled.Headers,
				})
			}
			fmt.Fprintln(out, compiled.SQL)
			for i, p := range compiled.Params {
				fmt.Fprintf(out, "$%d = %v\n", i+1, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "-", "Request file (YAML or JSON), - for stdin")
	cmd.Flags().StringVar(&metadataFile, "metadata", "", "Metadata fixture to load into a temporary catalog")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Skip the CTE rewrite")
	return cmd
}
