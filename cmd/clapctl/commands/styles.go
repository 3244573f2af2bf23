package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#00ff9f")
	colorWarn    = lipgloss.Color("#ffcc00")
	colorError   = lipgloss.Color("#ff5f5f")
	colorDim     = lipgloss.Color("#6e7681")
	colorText    = lipgloss.Color("#e6edf3")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(colorText)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

type field struct {
	label string
	value string
}

// printFields renders a title and aligned label/value rows.
func printFields(w io.Writer, title string, fields []field) {
	fmt.Fprintln(w, titleStyle.Render(title))
	for _, f := range fields {
		fmt.Fprintln(w, "  "+labelStyle.Render(f.label)+valueStyle.Render(f.value))
	}
}

func formatAmplitudes(vs []float64) string {
	if len(vs) == 0 {
		return dimStyle.Render("none")
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.0f", v)
	}
	return strings.Join(parts, ", ")
}
