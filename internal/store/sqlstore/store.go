package sqlstore

import (
	"context"

	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/go-faster/errors"
)

type runner interface {
	query(ctx context.Context, st statement) ([]store.Row, error)
	exec(ctx context.Context, st statement) (int, error)
}

// Store is a store.Store over one SQL connection pool.
type Store struct {
	dialect Dialect
	base    runner
	inTx    func(ctx context.Context, fn func(r runner) error) error
	close   func() error
}

var _ store.Store = (*Store)(nil)

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Insert writes rows in one transaction and returns them as stored. A
// single bad row rolls back the whole call.
func (s *Store) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := store.Lookup(table)
	if err != nil {
		return nil, err
	}
	stmts := make([]statement, len(rows))
	for i, r := range rows {
		if stmts[i], err = s.dialect.insert(t, r); err != nil {
			return nil, err
		}
	}

	var out []store.Row
	err = s.inTx(ctx, func(r runner) error {
		out = out[:0]
		for i, st := range stmts {
			got, err := r.query(ctx, st)
			if err != nil {
				return errors.Wrapf(err, "insert into %s row %d", table, i)
			}
			out = append(out, got...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return nil, err
	}
	st, err := s.dialect.selectRows(t, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.base.query(ctx, st)
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", table)
	}
	return rows, nil
}

func (s *Store) Update(ctx context.Context, table string, filters []store.Filter, patch store.Row) (int, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	st, err := s.dialect.update(t, filters, patch)
	if err != nil {
		return 0, err
	}
	n, err := s.base.exec(ctx, st)
	if err != nil {
		return 0, errors.Wrapf(err, "update %s", table)
	}
	return n, nil
}

func (s *Store) Delete(ctx context.Context, table string, filters []store.Filter) (int, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	st, err := s.dialect.delete(t, filters)
	if err != nil {
		return 0, err
	}
	n, err := s.base.exec(ctx, st)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", table)
	}
	return n, nil
}
