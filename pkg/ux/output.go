// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the convsweep CLI.
//
// Result tables are plain fixed-width text and are never styled: they are
// a wire format, frequently redirected to files and reparsed. Styling is
// applied only to surrounding status and summary lines, and only when
// stdout is a terminal.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text
	ColorWarning     = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError       = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
}

// IsTerminal reports whether stdout is attached to a terminal.
//
// Transient status lines (spinner frames, "creating convolver..." notes)
// are suppressed when output is piped or redirected, matching the
// behavior expected by downstream table parsers.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// styled applies a style only when stdout is a terminal.
func styled(style lipgloss.Style, s string) string {
	if !IsTerminal() {
		return s
	}
	return style.Render(s)
}

// Title prints a bold title line.
func Title(format string, args ...any) {
	fmt.Println(styled(Styles.Title, fmt.Sprintf(format, args...)))
}

// Info prints a plain informational line.
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Success prints a success line.
func Success(format string, args ...any) {
	fmt.Println(styled(Styles.Success, fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func Warning(format string, args ...any) {
	fmt.Println(styled(Styles.Warning, fmt.Sprintf(format, args...)))
}

// Error prints an error line to stderr.
func Error(format string, args ...any) {
	fmt.Fprintln(os.Stderr, styled(Styles.Error, fmt.Sprintf(format, args...)))
}

// Muted prints a de-emphasized line.
func Muted(format string, args ...any) {
	fmt.Println(styled(Styles.Muted, fmt.Sprintf(format, args...)))
}
