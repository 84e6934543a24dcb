// Package ui provides terminal output components for the starline CLI.
//
// Components follow a "render once and print" pattern: they build a styled
// string with Lipgloss and the caller writes it. Nothing here reads from
// the terminal except Confirm.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure or warning box with ordered details
//   - CodeTable: one row per decoded rolling code
//   - Confirm: typed confirmation before a transmission
//
// Widths follow the terminal (via golang.org/x/term) clamped to
// [MinTerminalWidth, MaxContentWidth].
//
// Example:
//
//	fmt.Println(ui.NewHeader("Decode", "starline decode capture.sub", []ui.Detail{
//	    {Key: "Keystore", Value: ks.Path},
//	}).Render())
//
//	table := ui.NewCodeTable(nil)
//	for _, code := range codes {
//	    table.Add(code)
//	}
//	fmt.Println(table.Render())
package ui
