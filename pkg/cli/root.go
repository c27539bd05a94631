// Package cli implements the trackerql command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trackerql/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// ExecuteServe runs the serve command with the process arguments.
func ExecuteServe() int {
	return run(context.Background(), append([]string{"serve"}, os.Args[1:]...), os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if output, _ := rootCmd.PersistentFlags().GetString("output"); output == "json" {
			_ = printJSON(stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		output  string
		envFile string
	)

	rootCmd := &cobra.Command{
		Use:           "trackerql",
		Short:         "Tracker analytics SQL compiler",
		Long:          "Compiles tracked entity analytics requests into PostgreSQL, rewrites correlated subqueries into CTEs and records execution plans.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			return config.LoadDotEnv(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")

	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newExplainCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "trackerql version %s (commit: %s)\n", version, commit)
			return err
		},
	}
}

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "text" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'text' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
