// Package report renders benchmark results as a table, JSON or YAML.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Swind/go-task-scheduler/internal/bench"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs results as an aligned, optionally colored table
	FormatTable Format = "table"
	// FormatJSON outputs results as indented JSON
	FormatJSON Format = "json"
	// FormatYAML outputs results as YAML
	FormatYAML Format = "yaml"
)

// ParseFormat maps a flag value to a Format. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Formatter writes benchmark results.
type Formatter interface {
	// Results writes the measurements of a run.
	Results(w io.Writer, results []bench.Result) error
	// Scenarios writes the catalogue of available scenarios.
	Scenarios(w io.Writer, scenarios []bench.Scenario) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// scenarioEntry is the serialized form of a bench.Scenario.
type scenarioEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Timed       bool   `json:"timed" yaml:"timed"`
}

func scenarioEntries(scenarios []bench.Scenario) []scenarioEntry {
	out := make([]scenarioEntry, len(scenarios))
	for i, s := range scenarios {
		out[i] = scenarioEntry{Name: s.Name, Description: s.Description, Timed: s.Timed}
	}
	return out
}
