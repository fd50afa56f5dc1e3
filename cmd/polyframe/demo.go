package main

import (
	"context"
	"fmt"
	"io"

	"github.com/paveg/polyframe"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/eager"
	"github.com/paveg/polyframe/internal/lazy"
	"github.com/paveg/polyframe/internal/monitoring"
	"github.com/paveg/polyframe/internal/series"
	"github.com/spf13/cobra"
)

const (
	baseAge            = 25
	ageRange           = 40
	baseSalary         = 40000
	salaryIncrement    = 1000
	salaryRange        = 60
	ageFilterThreshold = 35  // keep employees older than this
	bonusPercentage    = 0.1 // bonus as a share of salary
)

var departments = []string{"Engineering", "Sales", "Marketing", "HR", "Finance"}

type demoOptions struct {
	rows    int
	backend string
	metrics bool
}

func newDemoCommand(opts *cliOptions) *cobra.Command {
	demo := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one pipeline on every backend",
		Long: `Build an employee dataset, keep employees older than 35, add a bonus
column and summarise per department. The same expressions run on the
eager Arrow backend and on the lazy SQLite backend.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			demo.metrics = demo.metrics || opts.cfg.MetricsCollection
			return runDemo(cmd.Context(), cmd.OutOrStdout(), demo, opts.output)
		},
	}
	cmd.Flags().IntVar(&demo.rows, "rows", 1000, "Number of rows in the dataset")
	cmd.Flags().StringVar(&demo.backend, "backend", "all", "Backend to run on (arrow|sqlite|all)")
	cmd.Flags().BoolVar(&demo.metrics, "metrics", false, "Print operation timings")
	return cmd
}

func runDemo(ctx context.Context, w io.Writer, demo *demoOptions, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if demo.rows <= 0 {
		return fmt.Errorf("--rows must be positive, got %d", demo.rows)
	}
	runArrow, runSQLite := true, true
	if demo.backend != "all" {
		impl, err := polyframe.ParseBackend(demo.backend)
		if err != nil {
			return err
		}
		runArrow, runSQLite = impl == polyframe.Arrow, impl == polyframe.SQLite
	}

	v, err := polyframe.DefaultVersion()
	if err != nil {
		return err
	}
	mc := monitoring.NewMetricsCollector(demo.metrics)
	eagerNS := polyframe.NewEager(v, eager.WithMetrics(mc))

	df, err := employees(eagerNS, demo.rows)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Dataset: %d rows, columns %v\n\n", df.Len(), df.Columns())

	if runArrow {
		out, err := eagerPipeline(eagerNS, df)
		if err != nil {
			return fmt.Errorf("arrow: %w", err)
		}
		_, _ = fmt.Fprintln(w, "arrow (eager)")
		if err := renderFrame(w, out, format); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
	}

	if runSQLite {
		lazyNS, err := polyframe.OpenLazy(ctx, v, lazy.WithEager(eagerNS), lazy.WithMetrics(mc))
		if err != nil {
			return err
		}
		defer func() { _ = lazyNS.Close() }()

		out, plan, err := lazyPipeline(ctx, lazyNS, df)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		_, _ = fmt.Fprintln(w, "sqlite (lazy)")
		_, _ = fmt.Fprintf(w, "plan: %s\n", plan)
		if err := renderFrame(w, out, format); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
	}

	if demo.metrics {
		renderMetrics(w, mc.GetMetrics(), format)
	}
	return nil
}

// employees builds the sample dataset on the eager backend
func employees(ns *polyframe.EagerNamespace, rows int) (*polyframe.DataFrame, error) {
	names := make([]string, rows)
	ages := make([]int64, rows)
	salaries := make([]float64, rows)
	depts := make([]string, rows)
	for i := range rows {
		names[i] = fmt.Sprintf("Employee_%d", i+1)
		ages[i] = int64(baseAge + (i % ageRange))
		salaries[i] = float64(baseSalary + (i%salaryRange)*salaryIncrement)
		depts[i] = departments[i%len(departments)]
	}

	mem := ns.Allocator()
	native, err := dataframe.New(
		series.New("name", names, mem),
		series.New("age", ages, mem),
		series.New("salary", salaries, mem),
		series.New("department", depts, mem),
	)
	if err != nil {
		return nil, err
	}
	return ns.DataFrames().FromNative(native)
}

func olderThanThreshold() polyframe.Expr {
	return polyframe.Col("age").Gt(polyframe.Lit(int64(ageFilterThreshold)))
}

func bonus() polyframe.Expr {
	return polyframe.Col("salary").Mul(polyframe.Lit(bonusPercentage)).Alias("bonus")
}

func summary() []polyframe.Expr {
	return []polyframe.Expr{
		polyframe.Len().Alias("employees"),
		polyframe.Col("bonus").Sum().Alias("total_bonus"),
		polyframe.Col("age").Mean().Alias("mean_age"),
		polyframe.Col("salary").Max().Alias("top_salary"),
	}
}

func lowerAll[E any](lower func(polyframe.Expr) (E, error), exprs []polyframe.Expr) ([]E, error) {
	out := make([]E, len(exprs))
	for i, e := range exprs {
		lowered, err := lower(e)
		if err != nil {
			return nil, err
		}
		out[i] = lowered
	}
	return out, nil
}

func eagerPipeline(ns *polyframe.EagerNamespace, df *polyframe.DataFrame) (*polyframe.DataFrame, error) {
	filtered, err := df.Filter(olderThanThreshold())
	if err != nil {
		return nil, err
	}
	withBonus, err := filtered.WithColumns(bonus())
	if err != nil {
		return nil, err
	}
	gb, err := withBonus.GroupBy("department")
	if err != nil {
		return nil, err
	}
	aggs, err := lowerAll(ns.Lower, summary())
	if err != nil {
		return nil, err
	}
	return gb.Agg(aggs...)
}

// lazyPipeline ingests df into SQLite, runs the pipeline there and returns
// the collected result with the SQL it ran.
func lazyPipeline(ctx context.Context, ns *polyframe.LazyNamespace, df *polyframe.DataFrame) (*polyframe.DataFrame, string, error) {
	lf, err := ns.FromEager(ctx, df)
	if err != nil {
		return nil, "", err
	}
	return lazySummary(ctx, ns, lf)
}

// lazySummary runs the pipeline over a frame already held by SQLite
func lazySummary(ctx context.Context, ns *polyframe.LazyNamespace, lf *polyframe.LazyFrame) (*polyframe.DataFrame, string, error) {
	filtered, err := lf.Filter(olderThanThreshold())
	if err != nil {
		return nil, "", err
	}
	withBonus, err := filtered.WithColumns(bonus())
	if err != nil {
		return nil, "", err
	}
	gb, err := withBonus.GroupBy("department")
	if err != nil {
		return nil, "", err
	}
	aggs, err := lowerAll(ns.Lower, summary())
	if err != nil {
		return nil, "", err
	}
	grouped, err := gb.Agg(aggs...)
	if err != nil {
		return nil, "", err
	}
	out, err := grouped.Collect(ctx)
	if err != nil {
		return nil, "", err
	}
	return out, grouped.SQL(), nil
}
