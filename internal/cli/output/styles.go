package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Header   lipgloss.Style
	Location lipgloss.Style
	Caret    lipgloss.Style
}

// newStyles builds styles bound to w. Without a terminal every style
// renders plain text.
func newStyles(w io.Writer, isTTY bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Bold:     lr.NewStyle().Bold(true),
		Muted:    lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success:  lr.NewStyle().Foreground(lipgloss.Color("2")),
		Error:    lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warning:  lr.NewStyle().Foreground(lipgloss.Color("3")),
		Header:   lr.NewStyle().Bold(true).Underline(true),
		Location: lr.NewStyle().Bold(true),
		Caret:    lr.NewStyle().Foreground(lipgloss.Color("1")),
	}
}
