package output

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqltyper/internal/engine"
)

// Diagnostic writes d as "file:line:col: kind: message" followed by its
// source excerpt, to the error output.
func (r *Renderer) Diagnostic(d engine.Diagnostic) {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
	}
	_, _ = fmt.Fprintf(r.errOut, "%s: %s: %s\n",
		r.styles.Location.Render(loc),
		r.styles.Error.Render(d.Kind),
		d.Message)
	if d.Excerpt == "" {
		return
	}
	line, carets, _ := strings.Cut(d.Excerpt, "\n")
	_, _ = fmt.Fprintf(r.errOut, "    %s\n    %s\n", line, r.styles.Caret.Render(carets))
}
