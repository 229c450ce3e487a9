package output

import (
	"fmt"
	"strings"
)

// OutputFormat represents the available report formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// Formats lists the supported formats in display order.
var Formats = []OutputFormat{FormatText, FormatJSON, FormatYAML}

// ParseFormat converts a user supplied format name. An empty name selects
// FormatText.
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format %q (expected %s)", name, FormatList())
}

// FormatList renders Formats for help and error text, e.g. "text, json or yaml".
func FormatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
