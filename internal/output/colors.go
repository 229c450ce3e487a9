package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Trial     *color.Color
	URL       *color.Color
	Label     *color.Color
	Value     *color.Color
	Interval  *color.Color
	Dim       *color.Color
	Success   *color.Color
	Warning   *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Trial:     color.New(color.FgBlue, color.Bold),
		URL:       color.New(color.FgCyan),
		Label:     color.New(color.FgYellow),
		Value:     color.New(color.FgWhite, color.Bold),
		Interval:  color.New(color.FgGreen),
		Dim:       color.New(color.Faint),
		Success:   color.New(color.FgGreen),
		Warning:   color.New(color.FgYellow, color.Bold),
		Error:     color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	for _, c := range []*color.Color{
		scheme.Trial,
		scheme.URL,
		scheme.Label,
		scheme.Value,
		scheme.Interval,
		scheme.Dim,
		scheme.Success,
		scheme.Warning,
		scheme.Error,
		scheme.Highlight,
	} {
		c.DisableColor()
	}

	return scheme
}

// SchemeFor returns the scheme matching the noColor setting
func SchemeFor(noColor bool) *ColorScheme {
	if noColor {
		return NoColorScheme()
	}
	return DefaultColorScheme()
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
