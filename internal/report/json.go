package report

import (
	"encoding/json"
	"io"

	"github.com/Swind/go-task-scheduler/internal/bench"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Results writes results as a JSON array. Durations are in nanoseconds.
func (f *JSONFormatter) Results(w io.Writer, results []bench.Result) error {
	if results == nil {
		results = []bench.Result{}
	}
	return f.encode(w, results)
}

// Scenarios writes the scenario catalogue as a JSON array.
func (f *JSONFormatter) Scenarios(w io.Writer, scenarios []bench.Scenario) error {
	return f.encode(w, scenarioEntries(scenarios))
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
