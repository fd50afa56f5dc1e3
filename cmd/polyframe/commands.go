package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/polyframe"
	"github.com/paveg/polyframe/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display polyframe version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			var engines []string
			for _, impl := range polyframe.Backends() {
				engines = append(engines, impl.ModulePath())
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), version.Info(engines...).String())
		},
	}
}

func newBackendsCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered backends",
		Long:  `List every backend in admission order with the engine module and version it runs on.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"backend", "kind", "module", "version"})
			for _, impl := range polyframe.Backends() {
				kind := "eager"
				if impl == polyframe.SQLite {
					kind = "lazy"
				}
				t.AppendRow(table.Row{impl.String(), kind, impl.ModulePath(), joinVersion(impl.BackendVersion())})
			}
			render(t, opts.output)
			return nil
		},
	}
}

func newConfigCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults, the config file and POLYFRAME_* variables are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.cfg.Dump(cmd.OutOrStdout())
		},
	}
}

func joinVersion(parts []int) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ".")
}
