package formatter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		name    string
		pct     float64
		width   int
		wantPct string
	}{
		{"empty", 0, 10, "  0%"},
		{"half", 0.5, 10, " 50%"},
		{"full", 1, 10, "100%"},
		{"over 100% clamps", 1.5, 10, "100%"},
		{"negative clamps", -0.5, 10, "  0%"},
		{"tiny width clamps to 2", 0.5, 1, " 50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderProgress(tt.pct, tt.width)
			assert.True(t, strings.HasSuffix(got, tt.wantPct), got)
		})
	}

	assert.Contains(t, RenderProgress(0, 4), emptyBlock)
	assert.Contains(t, RenderProgress(1, 4), filledBlock)
}

func TestRateColor(t *testing.T) {
	assert.Equal(t, ColorGreen, RateColor(1))
	assert.Equal(t, ColorGreen, RateColor(0.9))
	assert.Equal(t, ColorYellow, RateColor(0.75))
	assert.Equal(t, ColorRed, RateColor(0.2))
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "LONGER"}, [][]string{
		{"process", "1"},
		{"x"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)

	col := strings.Index(lines[0], "LONGER")
	assert.Equal(t, col, strings.Index(lines[2], "1"))
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(lines[1]))
	assert.Empty(t, RenderTable(nil, nil))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "2.5s", FormatDuration(2512*time.Millisecond))
	assert.Equal(t, "1m5s", FormatDuration(65*time.Second+200*time.Millisecond))
}

func TestFormatResolution(t *testing.T) {
	tally := reference.NewTally()
	tally.Record(reference.CategoryProcess, "SIEM", reference.Match{ID: "p1", Via: reference.ViaExact})
	tally.Record(reference.CategoryProcess, "Невідомий процес", reference.Match{})
	tally.Record(reference.CategoryProcess, "Невідомий процес", reference.Match{})
	tally.Record(reference.CategoryEmployee, "", reference.Match{})

	out := FormatResolution(tally)
	assert.Contains(t, out, "RESOLUTION")
	assert.Contains(t, out, "process")
	assert.Contains(t, out, " 33%")
	assert.Contains(t, out, `"Невідомий процес" (2)`)
}

func TestFormatRun_OmitsUntouchedSections(t *testing.T) {
	r := report.New("merge")
	r.Merge = &report.MergeSummary{
		DryRun:     true,
		Groups:     2,
		Mismatches: []report.Mismatch{{SurvivorID: "w1", Before: decimal.NewFromInt(10), After: decimal.NewFromInt(8)}},
		Kept:       []string{"0f4c2a4e-1111-2222-3333-444444444444"},
	}
	r.AddDeleted("weekly_plans", 3)
	r.AddDeleted("weekly_tasks", 1)
	r.Finish()

	out := FormatRun(r)
	assert.Contains(t, out, "MERGE (DRY RUN)")
	assert.Contains(t, out, "hour totals changed")
	assert.Contains(t, out, "0f4c2a4e")
	assert.NotContains(t, out, "INPUT")
	assert.NotContains(t, out, "RESOLUTION")
	assert.Less(t, strings.Index(out, "weekly_tasks"), strings.Index(out, "weekly_plans"))
}

func TestFormatRun_TruncatesFailures(t *testing.T) {
	r := report.New("import")
	for i := range failuresShown + 3 {
		r.Fail("weekly", fmt.Sprintf("w%d", i), errors.New("store rejected request"))
	}
	r.Input = &report.InputSummary{Rows: 5, Dropped: 1, DroppedRows: []int{5}}

	out := FormatRun(r)
	assert.Contains(t, out, fmt.Sprintf("FAILURES (%d)", failuresShown+3))
	assert.Contains(t, out, "and 3 more")
	assert.Contains(t, out, "dropped sheet rows: 5")
	assert.NotContains(t, out, fmt.Sprintf("w%d ", failuresShown))
}
