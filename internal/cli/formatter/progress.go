package formatter

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a bar like ████░░░░  45%, colored by RateColor.
func RenderProgress(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if width < 2 {
		width = 2
	}

	bar := progress.New(
		progress.WithSolidFill(string(RateColor(pct))),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.Full = []rune(filledBlock)[0]
	bar.Empty = []rune(emptyBlock)[0]
	return fmt.Sprintf("%s %3.0f%%", bar.ViewAs(pct), pct*100)
}
