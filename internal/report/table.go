package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Swind/go-task-scheduler/internal/bench"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats results as a borderless aligned table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Results writes one row per case.
func (f *TableFormatter) Results(w io.Writer, results []bench.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, []string{
		"SCENARIO", "STRATEGY", "TASKS", "THREADS", "MEAN", "MIN", "MAX", "THEORY", "EFFICIENCY", "STOLEN",
	})

	for _, r := range results {
		theory, eff := "-", "-"
		if r.TheoryMs > 0 {
			theory = fmt.Sprintf("%.1fms", r.TheoryMs)
			e := r.Efficiency()
			eff = colors.Efficiency(e)("%.0f%%", e*100)
		}
		table.Append([]string{
			r.Scenario,
			colors.Strategy("%s", r.Strategy),
			strconv.Itoa(r.Tasks),
			strconv.Itoa(r.Threads),
			colors.Duration("%s", roundDuration(r.Mean)),
			roundDuration(r.Min).String(),
			roundDuration(r.Max).String(),
			theory,
			eff,
			strconv.FormatInt(r.Stolen, 10),
		})
	}

	table.Render()
	return nil
}

// Scenarios writes the scenario catalogue.
func (f *TableFormatter) Scenarios(w io.Writer, scenarios []bench.Scenario) error {
	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, []string{"NAME", "TIMED", "DESCRIPTION"})

	for _, s := range scenarios {
		table.Append([]string{s.Name, strconv.FormatBool(s.Timed), s.Description})
	}

	table.Render()
	return nil
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, colors *ColorScheme, headers []string) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// roundDuration keeps three significant digits.
func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond)
	case d >= time.Microsecond:
		return d.Round(10 * time.Nanosecond)
	default:
		return d
	}
}
