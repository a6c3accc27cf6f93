package sqlstore

import (
	"context"
	"database/sql"

	"github.com/alexanderramin/planrollup/internal/db"
	"github.com/alexanderramin/planrollup/internal/store"
)

type sqlRunner struct {
	tx db.DBTX
}

func (r sqlRunner) query(ctx context.Context, st statement) ([]store.Row, error) {
	rows, err := r.tx.QueryContext(ctx, st.sql, st.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r sqlRunner) exec(ctx context.Context, st statement) (int, error) {
	res, err := r.tx.ExecContext(ctx, st.sql, st.args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// NewSQLite wraps an opened, migrated database.
func NewSQLite(database *sql.DB) *Store {
	uow := db.NewSQLiteUnitOfWork(database)
	return &Store{
		dialect: SQLite,
		base:    sqlRunner{tx: uow.DB()},
		inTx: func(ctx context.Context, fn func(r runner) error) error {
			return uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				return fn(sqlRunner{tx: tx})
			})
		},
		close: database.Close,
	}
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*Store, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(database), nil
}
