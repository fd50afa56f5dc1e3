package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/polyframe"
	"github.com/paveg/polyframe/internal/monitoring"
)

// render writes t in the requested format through its output mirror
func render(t table.Writer, format string) {
	switch format {
	case "markdown":
		t.RenderMarkdown()
	case "csv":
		t.RenderCSV()
	default:
		t.Render()
	}
}

func renderFrame(w io.Writer, df *polyframe.DataFrame, format string) error {
	cols := df.Columns()
	values := make([][]any, len(cols))
	for i, name := range cols {
		s, err := df.GetColumn(name)
		if err != nil {
			return err
		}
		values[i] = s.Values()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, name := range cols {
		header[i] = name
	}
	t.AppendHeader(header)

	for r := 0; r < df.Len(); r++ {
		row := make(table.Row, len(cols))
		for c := range cols {
			row[c] = formatValue(values[c][r])
		}
		t.AppendRow(row)
	}

	render(t, format)
	if format == "table" {
		_, _ = fmt.Fprintf(w, "(%d rows)\n", df.Len())
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case float64:
		return fmt.Sprintf("%.4g", val)
	default:
		return fmt.Sprint(val)
	}
}

func renderMetrics(w io.Writer, metrics []monitoring.OperationMetrics, format string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"operation", "backend", "rows", "duration", "failed"})
	for _, m := range metrics {
		t.AppendRow(table.Row{m.Operation, m.Backend, m.RowsProcessed, m.Duration.String(), m.Failed})
	}
	render(t, format)
}
