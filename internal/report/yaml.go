package report

import (
	"io"

	"github.com/Swind/go-task-scheduler/internal/bench"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Results writes results as a YAML sequence. Durations use Go duration
// strings.
func (f *YAMLFormatter) Results(w io.Writer, results []bench.Result) error {
	return f.encode(w, results)
}

// Scenarios writes the scenario catalogue as a YAML sequence.
func (f *YAMLFormatter) Scenarios(w io.Writer, scenarios []bench.Scenario) error {
	return f.encode(w, scenarioEntries(scenarios))
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
