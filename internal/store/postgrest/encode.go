package postgrest

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// filterValues renders filters as PostgREST query parameters
// (column=operator.value). Several filters on one column become repeated
// parameters, which PostgREST combines with AND.
func filterValues(filters []store.Filter) (url.Values, error) {
	v := url.Values{}
	for _, f := range filters {
		expr, err := filterExpr(f)
		if err != nil {
			return nil, err
		}
		v.Add(f.Column, expr)
	}
	return v, nil
}

func filterExpr(f store.Filter) (string, error) {
	switch f.Op {
	case store.OpIsNull, store.OpNotNull:
		return string(f.Op), nil
	case store.OpIn:
		vals := f.Values()
		parts := make([]string, len(vals))
		for i, val := range vals {
			parts[i] = quoteListItem(formatValue(val))
		}
		return "in.(" + strings.Join(parts, ",") + ")", nil
	case store.OpEq, store.OpNeq, store.OpGt, store.OpGte, store.OpLt, store.OpLte:
		if f.Value == nil && f.Op == store.OpEq {
			return string(store.OpIsNull), nil
		}
		return string(f.Op) + "." + formatValue(f.Value), nil
	}
	return "", errors.Errorf("unsupported filter operator %q", f.Op)
}

func quoteListItem(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func formatValue(v any) string {
	switch x := encodeValue(v).(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// encodeValue maps repository values onto JSON-friendly ones. Decimals
// stay numbers so NUMERIC columns receive them unrounded.
func encodeValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return json.Number(x.String())
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
	}
	return v
}

func encodeRow(r store.Row) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = encodeValue(v)
	}
	return out
}

// encodeRows fills every row to the union of all keys; PostgREST bulk
// inserts require uniform objects.
func encodeRows(rows []store.Row) []map[string]any {
	keys := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := encodeRow(r)
		for k := range keys {
			if _, ok := m[k]; !ok {
				m[k] = nil
			}
		}
		out[i] = m
	}
	return out
}

func decodeRows(body []byte) ([]store.Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode rows")
	}
	out := make([]store.Row, len(raw))
	for i, m := range raw {
		out[i] = store.Row(m)
	}
	return out, nil
}

func orderParam(order []store.Order, key []string) string {
	terms := make([]string, 0, len(order))
	for _, o := range order {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		terms = append(terms, o.Column+"."+dir)
	}
	if len(terms) == 0 {
		for _, k := range key {
			terms = append(terms, k+".asc")
		}
	}
	return strings.Join(terms, ",")
}
