// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the engines of a manager:
//  1. [EngineListView] : Browse registered engines, stored and static
//  2. [DetailView] : Inspect the properties of one engine and run a connectivity check
//  3. [CheckView] : Monitor real-time progress while every engine is probed
//  4. [ReportView] : Display the health report of the last check
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Checker], providing non-blocking status reporting during checks.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, a, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
