package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

type field struct {
	label string
	value string
}

// renderFields aligns label/value pairs in two columns.
func renderFields(fields []field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.label))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		pad := strings.Repeat(" ", width-lipgloss.Width(f.label)+colGap)
		lines = append(lines, Dim(f.label)+pad+StyleFg.Render(f.value))
	}
	return strings.Join(lines, "\n")
}

func count(n int) string {
	return fmt.Sprintf("%d", n)
}

// countStyled renders n red when it is non-zero.
func countStyled(n int) string {
	if n > 0 {
		return StyleRed.Render(count(n))
	}
	return count(n)
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// TruncID returns the first 8 characters of an identity.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
