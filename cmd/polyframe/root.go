package main

import (
	"fmt"

	"github.com/paveg/polyframe/internal/config"
	"github.com/paveg/polyframe/internal/version"
	"github.com/spf13/cobra"
)

// Output formats accepted by --output
var outputFormats = []string{"table", "markdown", "csv"}

// cliOptions are the persistent flags shared by every command
type cliOptions struct {
	configPath string
	output     string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "polyframe",
		Short: "polyframe - one expression language over eager and lazy backends",
		Long: `polyframe runs a single dataframe expression language over an eager
Arrow engine and a lazy SQLite engine.

Use "backends" to see what is available and "demo" to run the same
pipeline on each backend.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			if !validOutput(opts.output) {
				return fmt.Errorf("unknown output format %q (want one of %v)", opts.output, outputFormats)
			}
			cfg, err := config.LoadWithFlags(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			config.SetGlobalConfig(cfg)
			opts.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML); POLYFRAME_* variables override it")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table|markdown|csv)")

	// Setting overrides; applied above the config file and environment
	rootCmd.PersistentFlags().String("api-version", config.DefaultAPIVersion, "API dialect (main|v1)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("sqlite-dsn", config.DefaultSQLiteDSN, "SQLite data source for the lazy backend")
	rootCmd.PersistentFlags().Bool("metrics-collection", false, "Record per-operation metrics")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newBackendsCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newDemoCommand(opts))
	rootCmd.AddCommand(newBenchCommand(opts))

	return rootCmd
}

func validOutput(format string) bool {
	for _, f := range outputFormats {
		if f == format {
			return true
		}
	}
	return false
}
