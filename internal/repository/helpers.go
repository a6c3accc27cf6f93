package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/shopspring/decimal"
)

// Backends return the same column as text (PostgreSQL, SQLite TEXT),
// json.Number (PostgREST) or native numbers (SQLite NUMERIC). The readers
// below accept all of them.

func text(r store.Row, col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func optionalText(r store.Row, col string) *string {
	if r[col] == nil {
		return nil
	}
	s := text(r, col)
	return &s
}

func number(r store.Row, col string) (decimal.Decimal, error) {
	switch v := r[col].(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case decimal.Decimal:
		return v, nil
	}
	s := strings.TrimSpace(text(r, col))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %s: %w", col, err)
	}
	return d, nil
}

func integer(r store.Row, col string) (int, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, nil
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(text(r, col)))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return n, nil
}

// date reads the calendar day of a date or timestamp column. Only the
// leading YYYY-MM-DD is significant.
func date(r store.Row, col string) (time.Time, error) {
	if t, ok := r[col].(time.Time); ok {
		return domain.DateOnly(t), nil
	}
	s := strings.TrimSpace(text(r, col))
	if len(s) < len(domain.DateLayout) {
		return time.Time{}, fmt.Errorf("column %s: invalid date %q", col, s)
	}
	t, err := time.Parse(domain.DateLayout, s[:len(domain.DateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: %w", col, err)
	}
	return t, nil
}

func optionalDate(r store.Row, col string) (*time.Time, error) {
	if r[col] == nil {
		return nil, nil
	}
	t, err := date(r, col)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func numberValue(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func dateValue(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dateValue(*t)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
