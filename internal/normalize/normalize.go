// Package normalize turns raw spreadsheet rows into typed records.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006",
	"02.01.2006 15:04:05",
}

// Result holds the records that survived plus counters for the rest.
type Result struct {
	Records      []domain.NormalizedRecord
	Dropped      int
	DroppedRows  []int
	WeekMismatch int
}

// Rows normalizes every row in input order.
func Rows(rows []domain.RawRow) *Result {
	res := &Result{Records: make([]domain.NormalizedRecord, 0, len(rows))}
	for _, raw := range rows {
		rec, ok := Row(raw)
		if !ok {
			res.Dropped++
			res.DroppedRows = append(res.DroppedRows, raw.Index)
			continue
		}
		if week, _, ok := ParseWeekLabel(raw.WeekLabel); ok && week != rec.Week {
			res.WeekMismatch++
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// Row normalizes one row. It reports false when the row has no main task
// or no usable plan date.
func Row(raw domain.RawRow) (domain.NormalizedRecord, bool) {
	mainTask := strings.TrimSpace(raw.MainTask)
	if mainTask == "" {
		return domain.NormalizedRecord{}, false
	}
	planDate, ok := Date(raw.PlanDate)
	if !ok {
		return domain.NormalizedRecord{}, false
	}

	isoYear, week := planDate.ISOWeek()
	rec := domain.NormalizedRecord{
		Index:        raw.Index,
		Process:      domain.OptionalText(raw.Process),
		MainTask:     mainTask,
		Department:   domain.OptionalText(raw.Department),
		Employee:     domain.OptionalText(raw.Employee),
		PlannedHours: Hours(raw.PlannedHours),
		PlanDate:     planDate,
		Task:         domain.OptionalText(raw.Task),
		Document:     domain.OptionalText(raw.Document),
		Note:         domain.OptionalText(raw.Note),
		Company:      domain.OptionalText(raw.Company),
		ActualHours:  Hours(raw.ActualHours),
		ISOYear:      isoYear,
		Week:         week,
		Quarter:      domain.QuarterOf(planDate),
		WeekStart:    domain.WeekStart(planDate),
	}
	if done, ok := Date(raw.CompletedAt); ok {
		rec.CompletedAt = &done
	}
	return rec, true
}

// Hours coerces a cell to an exact decimal. Missing, non-numeric and
// negative values become zero.
func Hours(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Date coerces a cell to a calendar date. Numbers are spreadsheet serials
// counted from 1899-12-30; strings may be serials or one of the accepted
// layouts. Time of day is dropped.
func Date(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return domain.DateOnly(x), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return Date(*x)
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.DateOnly(t), true
			}
		}
	}
	return time.Time{}, false
}

func fromSerial(serial float64) (time.Time, bool) {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return domain.DateOnly(t), true
}

// ParseWeekLabel reads labels such as "5 2025" or "5". The year is 0 when
// absent.
func ParseWeekLabel(label string) (week, year int, ok bool) {
	fields := strings.Fields(label)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, 0, false
	}
	week, err := strconv.Atoi(fields[0])
	if err != nil || week < 1 || week > 53 {
		return 0, 0, false
	}
	if len(fields) == 2 {
		if year, err = strconv.Atoi(fields[1]); err != nil {
			return 0, 0, false
		}
	}
	return week, year, true
}
