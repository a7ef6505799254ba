// Package ui centralizes terminal styling for vita's CLI output.
//
// Styles degrade automatically on dumb terminals: when the output is
// not a TTY or the terminal reports no color support, render helpers
// return their input unchanged.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	dimStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// colorEnabled reports whether styled output should be produced.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return termenv.DefaultOutput().ColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// RenderAccent renders s in the accent color, used for in-progress
// activity markers.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass renders s in the success color.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn renders s in the warning color.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderErr renders s in the error color.
func RenderErr(s string) string { return render(errStyle, s) }

// RenderDim renders s faintly, used for secondary detail.
func RenderDim(s string) string { return render(dimStyle, s) }

// RenderBold renders s bold, used for headers.
func RenderBold(s string) string { return render(boldStyle, s) }
