// Package store defines the table-oriented persistence contract shared by
// the REST, PostgreSQL and SQLite backends.
package store

import "context"

// Row is one record keyed by column name.
type Row map[string]any

type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpIn      Op = "in"
	OpIsNull  Op = "is.null"
	OpNotNull Op = "not.is.null"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Filter  { return Filter{Column: col, Op: OpEq, Value: v} }
func Neq(col string, v any) Filter { return Filter{Column: col, Op: OpNeq, Value: v} }
func Gt(col string, v any) Filter  { return Filter{Column: col, Op: OpGt, Value: v} }
func Gte(col string, v any) Filter { return Filter{Column: col, Op: OpGte, Value: v} }
func Lt(col string, v any) Filter  { return Filter{Column: col, Op: OpLt, Value: v} }
func Lte(col string, v any) Filter { return Filter{Column: col, Op: OpLte, Value: v} }
func IsNull(col string) Filter     { return Filter{Column: col, Op: OpIsNull} }
func NotNull(col string) Filter    { return Filter{Column: col, Op: OpNotNull} }

// In matches any of vals. An empty list matches nothing.
func In(col string, vals ...any) Filter {
	return Filter{Column: col, Op: OpIn, Value: vals}
}

// InStrings is In for a string slice.
func InStrings(col string, vals []string) Filter {
	anys := make([]any, len(vals))
	for i, v := range vals {
		anys[i] = v
	}
	return In(col, anys...)
}

// Values returns the operand list of an In filter.
func (f Filter) Values() []any {
	vals, _ := f.Value.([]any)
	return vals
}

type Order struct {
	Column string
	Desc   bool
}

// Query selects rows. Zero Limit means no limit; backends page through
// large results on their own.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// Store persists rows by table name. Update and Delete refuse to run
// without at least one filter.
type Store interface {
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, filters []Filter, patch Row) (int, error)
	Delete(ctx context.Context, table string, filters []Filter) (int, error)
}
