// Package output renders command results for terminals, pipes and
// machines.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	// ModeAuto renders styled text on a terminal and plain text otherwise.
	ModeAuto OutputMode = "auto"
	ModeText OutputMode = "text"
	ModeJSON OutputMode = "json"
	ModeYAML OutputMode = "yaml"
)

// Mode parses s, falling back to ModeAuto.
func Mode(s string) OutputMode {
	switch m := OutputMode(strings.ToLower(s)); m {
	case ModeText, ModeJSON, ModeYAML:
		return m
	}
	return ModeAuto
}
