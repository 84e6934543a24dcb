package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/starline/internal/starline"
)

// Labeler names a remote by serial, e.g. from user nicknames
type Labeler func(serial uint32) string

// CodeTable renders decoded codes one per row
type CodeTable struct {
	codes []starline.RollingCode
	label Labeler
}

var codeColumns = []struct {
	title string
	width int
}{
	{"#", 4},
	{"Key", 24},
	{"Bits", 5},
	{"Remote", 18},
	{"Btn", 5},
	{"Cnt", 7},
	{"Manufacturer", 34},
}

// NewCodeTable creates an empty table. label may be nil.
func NewCodeTable(label Labeler) *CodeTable {
	if label == nil {
		label = func(serial uint32) string { return fmt.Sprintf("0x%06X", serial&0xFFFFFF) }
	}
	return &CodeTable{label: label}
}

// Add appends a code
func (t *CodeTable) Add(code starline.RollingCode) {
	t.codes = append(t.codes, code)
}

// Len returns the number of rows
func (t *CodeTable) Len() int {
	return len(t.codes)
}

// Render returns the table as a string
func (t *CodeTable) Render() string {
	if len(t.codes) == 0 {
		return MutedStyle.Render("  No StarLine frames found.")
	}

	rows := []string{t.row(TableHeaderStyle, t.titles()...)}
	for i, c := range t.codes {
		style := ResolvedStyle
		if !c.Resolved() {
			style = UnresolvedStyle
		}
		rows = append(rows, t.row(style,
			fmt.Sprintf("%d", i+1),
			starline.FormatKey(c.Data),
			fmt.Sprintf("%d", c.BitCount),
			t.label(c.Serial),
			fmt.Sprintf("0x%02X", c.Button),
			fmt.Sprintf("0x%04X", c.Counter),
			manufacturerCell(c),
		))
	}
	return strings.Join(rows, "\n")
}

// String implements fmt.Stringer
func (t *CodeTable) String() string {
	return t.Render()
}

func (t *CodeTable) titles() []string {
	titles := make([]string, len(codeColumns))
	for i, col := range codeColumns {
		titles[i] = col.title
	}
	return titles
}

func (t *CodeTable) row(style lipgloss.Style, cells ...string) string {
	var b strings.Builder
	b.WriteString("  ")
	for i, cell := range cells {
		b.WriteString(lipgloss.NewStyle().Width(codeColumns[i].width).Render(cell))
	}
	return style.Render(strings.TrimRight(b.String(), " "))
}

func manufacturerCell(c starline.RollingCode) string {
	if !c.Resolved() {
		return starline.ManufacturerUnknown
	}
	return fmt.Sprintf("%s (%s)", c.Manufacturer, c.Scheme)
}

// RenderCode renders a single code as a result box
func RenderCode(title string, code starline.RollingCode, label Labeler) string {
	if label == nil {
		label = NewCodeTable(nil).label
	}
	details := []Detail{
		{Key: "Key", Value: starline.FormatKey(code.Data)},
		{Key: "Bits", Value: fmt.Sprintf("%d", code.BitCount)},
		{Key: "Remote", Value: label(code.Serial)},
		{Key: "Button", Value: fmt.Sprintf("0x%02X", code.Button)},
		{Key: "Counter", Value: fmt.Sprintf("0x%04X", code.Counter)},
		{Key: "Manufacturer", Value: manufacturerCell(code)},
	}
	if code.Resolved() {
		return NewSuccessResult(title, details...).Render()
	}
	return NewWarningResult(title, details...).Render()
}
