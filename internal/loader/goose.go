package loader

import (
	"strings"
)

// goose annotations
const (
	annotationPrefix = "-- +goose"
	annotationUp     = "up"
	annotationDown   = "down"
)

// UpSection blanks every line of a goose migration that is outside its
// "-- +goose Up" section. Line, column and byte positions in the result
// match the original file.
// Content without annotations is returned unchanged.
func UpSection(content string) string {
	lines := strings.SplitAfter(content, "\n")
	found := false
	up := false
	for i, line := range lines {
		if dir, ok := annotation(line); ok {
			switch dir {
			case annotationUp:
				up, found = true, true
			case annotationDown:
				up, found = false, true
			}
			continue
		}
		if !up {
			lines[i] = blank(line)
		}
	}
	if !found {
		return content
	}
	return strings.Join(lines, "")
}

// annotation returns the lower-cased first word after "-- +goose".
func annotation(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", true
	}
	return strings.ToLower(fields[0]), true
}

// blank replaces every byte of line but its newline with a space.
func blank(line string) string {
	body, nl := strings.CutSuffix(line, "\n")
	out := strings.Repeat(" ", len(body))
	if nl {
		out += "\n"
	}
	return out
}
