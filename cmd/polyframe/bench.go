package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/polyframe"
	"github.com/paveg/polyframe/internal/lazy"
	"github.com/paveg/polyframe/internal/monitoring"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	rows       int
	iterations int
}

func newBenchCommand(opts *cliOptions) *cobra.Command {
	bench := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the demo pipeline on every backend",
		Long: `Run the demo pipeline repeatedly on the eager Arrow backend and the lazy
SQLite backend and report per-backend timings. Ingestion into SQLite is
timed as its own scenario.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), bench, opts.output)
		},
	}
	cmd.Flags().IntVar(&bench.rows, "rows", 100000, "Number of rows in the dataset")
	cmd.Flags().IntVar(&bench.iterations, "iterations", 5, "Iterations per scenario")
	return cmd
}

func runBench(ctx context.Context, w io.Writer, bench *benchOptions, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if bench.rows <= 0 {
		return fmt.Errorf("--rows must be positive, got %d", bench.rows)
	}

	v, err := polyframe.DefaultVersion()
	if err != nil {
		return err
	}
	eagerNS := polyframe.NewEager(v)
	df, err := employees(eagerNS, bench.rows)
	if err != nil {
		return err
	}

	lazyNS, err := polyframe.OpenLazy(ctx, v, lazy.WithEager(eagerNS))
	if err != nil {
		return err
	}
	defer func() { _ = lazyNS.Close() }()
	lf, err := lazyNS.FromEager(ctx, df)
	if err != nil {
		return err
	}

	suite := monitoring.NewBenchmarkSuite()
	suite.AddScenario(monitoring.BenchmarkScenario{
		Name:       "summary",
		Backend:    polyframe.Arrow.String(),
		Rows:       bench.rows,
		Iterations: bench.iterations,
		Operation: func(context.Context) error {
			_, err := eagerPipeline(eagerNS, df)
			return err
		},
	})
	suite.AddScenario(monitoring.BenchmarkScenario{
		Name:       "summary",
		Backend:    polyframe.SQLite.String(),
		Rows:       bench.rows,
		Iterations: bench.iterations,
		Operation: func(ctx context.Context) error {
			_, _, err := lazySummary(ctx, lazyNS, lf)
			return err
		},
	})
	suite.AddScenario(monitoring.BenchmarkScenario{
		Name:       "ingest",
		Backend:    polyframe.SQLite.String(),
		Rows:       bench.rows,
		Iterations: bench.iterations,
		Operation: func(ctx context.Context) error {
			_, err := lazyNS.FromEager(ctx, df)
			return err
		},
	})

	results := suite.Run(ctx)
	renderBenchmarks(w, results, format)
	if best, ok := suite.Fastest("summary"); ok {
		_, _ = fmt.Fprintf(w, "fastest summary: %s (%s)\n", best.Scenario.Backend, best.AverageDuration)
	}
	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("%s on %s: %s", r.Scenario.Name, r.Scenario.Backend, r.ErrorMessage)
		}
	}
	return nil
}

func renderBenchmarks(w io.Writer, results []monitoring.BenchmarkResult, format string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"scenario", "backend", "rows", "iterations", "mean", "min", "max", "rows/s", "ok"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Scenario.Name,
			r.Scenario.Backend,
			r.Scenario.Rows,
			r.Scenario.Iterations,
			r.AverageDuration.String(),
			r.MinDuration.String(),
			r.MaxDuration.String(),
			fmt.Sprintf("%.0f", r.RowsPerSec),
			r.Success,
		})
	}
	render(t, format)
}
