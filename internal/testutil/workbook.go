package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// TimesheetHeader is the header row of the planning timesheet.
var TimesheetHeader = []any{
	"Процес", "Основна задача", "Підрозділ", "Співробітник", "План, год", "Дата плану",
	"Задача", "Дата факту", "Документ", "Примітка", "Компанія", "Факт, год", "Тиждень",
}

// WriteWorkbook saves rows to Sheet1 of a new workbook under t.TempDir
// and returns its path. Rows are written as given, header included.
func WriteWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row %d: %v", i+1, err)
		}
	}
	path := filepath.Join(t.TempDir(), "timesheet.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}
