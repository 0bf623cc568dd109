// Package ui provides styled terminal output for the Yeelight CLI.
//
// Output is non-interactive: a shared lipgloss color palette plus renderers
// for the discovery table, success/failure result lines, and key/value
// detail lines. Widths adapt to the terminal via golang.org/x/term.
package ui
