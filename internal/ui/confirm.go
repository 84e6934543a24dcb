package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase must be typed to approve a confirmation prompt
const ConfirmPhrase = "TRANSMIT"

// Confirm displays a warning box on out and reads the confirmation phrase
// from in. Returns true if the user confirmed.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, warning := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+warning))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Fprintln(out, box)
	fmt.Fprintln(out)
	fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	fmt.Fprintln(out, MutedStyle.Render("  Operation cancelled."))
	return false
}

// TransmitConfirmation warns that sending a rolled code advances the
// receiver past the genuine remote
func TransmitConfirmation(in io.Reader, out io.Writer) bool {
	return Confirm(in, out, "RADIO TRANSMISSION", []string{
		"The encoded frame will be sent on the air",
		"A rolled code moves the receiver's counter ahead of the original remote",
		"Only transmit to equipment you own or are authorised to test",
	})
}
