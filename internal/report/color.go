package report

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	Header   func(format string, a ...interface{}) string
	Strategy func(format string, a ...interface{}) string
	Duration func(format string, a ...interface{}) string
	Good     func(format string, a ...interface{}) string
	Fair     func(format string, a ...interface{}) string
	Poor     func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme
// Colors are automatically disabled for non-TTY outputs or when noColor is true
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	useColor := !noColor && isTTY(w)

	mk := func(attrs ...color.Attribute) func(format string, a ...interface{}) string {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.Sprintf
	}

	return &ColorScheme{
		Header:   mk(color.FgWhite, color.Bold),
		Strategy: mk(color.FgCyan),
		Duration: mk(color.FgBlue),
		Good:     mk(color.FgGreen),
		Fair:     mk(color.FgYellow),
		Poor:     mk(color.FgRed, color.Bold),
		Disabled: !useColor,
	}
}

// isTTY checks if the writer is a TTY
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Efficiency picks a color for a theoretical-over-measured ratio.
func (cs *ColorScheme) Efficiency(ratio float64) func(format string, a ...interface{}) string {
	switch {
	case ratio >= 0.8:
		return cs.Good
	case ratio >= 0.5:
		return cs.Fair
	default:
		return cs.Poor
	}
}
