package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"trackerql/internal/sqlrewrite"
)

func newOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize [file|-]",
		Short: "Rewrite correlated subqueries in SQL into CTEs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			sql := strings.TrimSpace(string(data))
			if sql == "" {
				return fmt.Errorf("no SQL given")
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			optimizer := sqlrewrite.NewOptimizer(sqlrewrite.WithLogger(logger))
			res, changed := optimizer.Rewrite(sql)

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				ctes := make([]map[string]any, 0, len(res.CTEs))
				for _, c := range res.CTEs {
					ctes = append(ctes, map[string]any{
						"name":     c.CanonicalName,
						"alias":    c.JoinAlias,
						"metadata": c.Metadata,
					})
				}
				return printJSON(out, map[string]any{
					"sql":      res.SQL,
					"changed":  changed,
					"ctes":     ctes,
					"patterns": optimizer.Patterns(),
				})
			}
			_, err = fmt.Fprintln(out, res.SQL)
			return err
		},
	}
}
