package importer

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Column positions in the timesheet. The week label column is optional.
const (
	colProcess = iota
	colMainTask
	colDepartment
	colEmployee
	colPlannedHours
	colPlanDate
	colTask
	colCompletedAt
	colDocument
	colNote
	colCompany
	colActualHours
	colWeekLabel

	requiredColumns = colWeekLabel
)

var columnNames = [...]string{
	"process", "main task", "department", "employee", "planned hours", "plan date",
	"task", "completion date", "document", "note", "company", "actual hours", "week",
}

type ReadOptions struct {
	// Sheet names the worksheet to read. Empty means the first sheet.
	Sheet string
}

// HeaderError lists every problem found in the header row.
type HeaderError struct {
	Sheet  string
	Errors []error
}

func (e *HeaderError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("sheet %q header: %s", e.Sheet, strings.Join(msgs, "; "))
}

// ReadWorkbook returns the data rows of one worksheet with raw cell
// values: dates stay spreadsheet serials and hours stay unformatted. Row
// indexes are sheet row numbers, so the first data row is 2. Blank rows
// are skipped.
func ReadWorkbook(path string, opts ReadOptions) ([]domain.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &HeaderError{Sheet: sheet, Errors: []error{fmt.Errorf("header row is missing")}}
	}
	if errs := validateHeader(rows[0]); len(errs) > 0 {
		return nil, &HeaderError{Sheet: sheet, Errors: errs}
	}

	out := make([]domain.RawRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		out = append(out, toRawRow(i+2, cells))
	}
	return out, nil
}

func validateHeader(header []string) []error {
	var errs []error
	for col := 0; col < requiredColumns; col++ {
		if col >= len(header) || strings.TrimSpace(header[col]) == "" {
			name, _ := excelize.ColumnNumberToName(col + 1)
			errs = append(errs, fmt.Errorf("column %s (%s) has no header", name, columnNames[col]))
		}
	}
	return errs
}

func toRawRow(index int, cells []string) domain.RawRow {
	text := func(col int) string {
		if col < len(cells) {
			return cells[col]
		}
		return ""
	}
	value := func(col int) any {
		if s := strings.TrimSpace(text(col)); s != "" {
			return s
		}
		return nil
	}
	return domain.RawRow{
		Index:        index,
		Process:      text(colProcess),
		MainTask:     text(colMainTask),
		Department:   text(colDepartment),
		Employee:     text(colEmployee),
		PlannedHours: value(colPlannedHours),
		PlanDate:     value(colPlanDate),
		Task:         text(colTask),
		CompletedAt:  value(colCompletedAt),
		Document:     text(colDocument),
		Note:         text(colNote),
		Company:      text(colCompany),
		ActualHours:  value(colActualHours),
		WeekLabel:    text(colWeekLabel),
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
