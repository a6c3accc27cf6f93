package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one spreadsheet line as read from the source. Hours and date
// cells stay untyped: they may hold a number, a numeric string, a
// time.Time, a date string or nil.
type RawRow struct {
	Index        int
	Process      string
	MainTask     string
	Department   string
	Employee     string
	PlannedHours any
	PlanDate     any
	Task         string
	CompletedAt  any
	Document     string
	Note         string
	Company      string
	ActualHours  any
	WeekLabel    string
}

// NormalizedRecord is a RawRow after trimming and type coercion. Optional
// text fields are nil when the cell was empty after trimming.
type NormalizedRecord struct {
	Index        int
	Process      *string
	MainTask     string
	Department   *string
	Employee     *string
	PlannedHours decimal.Decimal
	PlanDate     time.Time
	Task         *string
	CompletedAt  *time.Time
	Document     *string
	Note         *string
	Company      *string
	ActualHours  decimal.Decimal
	ISOYear      int
	Week         int
	Quarter      int
	WeekStart    time.Time
}
