// Package sqlstore implements store.Store over SQL databases. SQLite and
// PostgreSQL share one statement builder and differ only in dialect.
package sqlstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Dialect captures the syntax differences between backends.
type Dialect struct {
	Name string

	// Postgres reads every column back as text so decoding does not
	// depend on driver type mapping.
	castText   bool
	positional bool
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres", castText: true, positional: true}
)

type statement struct {
	sql  string
	args []any
}

type builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, bindValue(v))
	if b.d.positional {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *builder) statement() statement {
	return statement{sql: b.sb.String(), args: b.args}
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func (d Dialect) columnList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if d.castText {
			out[i] = quote(c) + "::text AS " + quote(c)
		} else {
			out[i] = quote(c)
		}
	}
	return strings.Join(out, ", ")
}

func (d Dialect) insert(t store.Table, r store.Row) (statement, error) {
	if len(r) == 0 {
		return statement{}, errors.Errorf("insert into %s: empty row", t.Name)
	}
	if err := t.CheckRow(r); err != nil {
		return statement{}, err
	}
	cols := sortedColumns(r)
	b := &builder{d: d}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		marks[i] = b.bind(r[c])
	}
	b.write("INSERT INTO ", quote(t.Name), " (", strings.Join(quoted, ", "), ") VALUES (",
		strings.Join(marks, ", "), ") RETURNING ", d.columnList(t.Columns))
	return b.statement(), nil
}

func (d Dialect) selectRows(t store.Table, q store.Query) (statement, error) {
	if err := t.CheckQuery(q); err != nil {
		return statement{}, err
	}
	cols := q.Columns
	if len(cols) == 0 {
		cols = t.Columns
	}
	b := &builder{d: d}
	b.write("SELECT ", d.columnList(cols), " FROM ", quote(t.Name))
	if err := b.where(q.Filters); err != nil {
		return statement{}, err
	}
	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			terms[i] = quote(o.Column)
			if o.Desc {
				terms[i] += " DESC"
			}
		}
		b.write(" ORDER BY ", strings.Join(terms, ", "))
	}
	switch {
	case q.Limit > 0:
		b.write(" LIMIT ", strconv.Itoa(q.Limit))
	case q.Offset > 0 && !d.positional:
		b.write(" LIMIT -1")
	}
	if q.Offset > 0 {
		b.write(" OFFSET ", strconv.Itoa(q.Offset))
	}
	return b.statement(), nil
}

func (d Dialect) update(t store.Table, filters []store.Filter, patch store.Row) (statement, error) {
	if len(filters) == 0 {
		return statement{}, errors.Wrapf(store.ErrUnfiltered, "update %s", t.Name)
	}
	if len(patch) == 0 {
		return statement{}, errors.Errorf("update %s: empty patch", t.Name)
	}
	if err := t.CheckRow(patch); err != nil {
		return statement{}, err
	}
	if err := t.CheckFilters(filters); err != nil {
		return statement{}, err
	}
	b := &builder{d: d}
	cols := sortedColumns(patch)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = " + b.bind(patch[c])
	}
	b.write("UPDATE ", quote(t.Name), " SET ", strings.Join(sets, ", "))
	if err := b.where(filters); err != nil {
		return statement{}, err
	}
	return b.statement(), nil
}

func (d Dialect) delete(t store.Table, filters []store.Filter) (statement, error) {
	if len(filters) == 0 {
		return statement{}, errors.Wrapf(store.ErrUnfiltered, "delete from %s", t.Name)
	}
	if err := t.CheckFilters(filters); err != nil {
		return statement{}, err
	}
	b := &builder{d: d}
	b.write("DELETE FROM ", quote(t.Name))
	if err := b.where(filters); err != nil {
		return statement{}, err
	}
	return b.statement(), nil
}

func (b *builder) where(filters []store.Filter) error {
	if len(filters) == 0 {
		return nil
	}
	terms := make([]string, 0, len(filters))
	for _, f := range filters {
		term, err := b.condition(f)
		if err != nil {
			return err
		}
		terms = append(terms, term)
	}
	b.write(" WHERE ", strings.Join(terms, " AND "))
	return nil
}

var comparisons = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNeq: "<>",
	store.OpGt:  ">",
	store.OpGte: ">=",
	store.OpLt:  "<",
	store.OpLte: "<=",
}

func (b *builder) condition(f store.Filter) (string, error) {
	col := quote(f.Column)
	switch f.Op {
	case store.OpIsNull:
		return col + " IS NULL", nil
	case store.OpNotNull:
		return col + " IS NOT NULL", nil
	case store.OpIn:
		vals := f.Values()
		if len(vals) == 0 {
			return "1 = 0", nil
		}
		marks := make([]string, len(vals))
		for i, v := range vals {
			marks[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil
	}
	sym, ok := comparisons[f.Op]
	if !ok {
		return "", errors.Errorf("unsupported filter operator %q", f.Op)
	}
	if f.Value == nil && f.Op == store.OpEq {
		return col + " IS NULL", nil
	}
	return col + " " + sym + " " + b.bind(f.Value), nil
}

func sortedColumns(r store.Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// bindValue converts the repository's value vocabulary into driver
// arguments. Decimals travel as strings so NUMERIC columns keep them exact.
func bindValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(domain.DateLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(domain.DateLayout)
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	}
	return v
}
