package sqlstore

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type pgxRunner struct {
	q pgxQuerier
}

func (r pgxRunner) query(ctx context.Context, st statement) ([]store.Row, error) {
	rows, err := r.q.Query(ctx, st.sql, st.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []store.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(store.Row, len(fields))
		for i, f := range fields {
			row[f.Name] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r pgxRunner) exec(ctx context.Context, st statement) (int, error) {
	tag, err := r.q.Exec(ctx, st.sql, st.args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// NewPostgres serves the store from an existing pool. The planning tables
// must already exist.
func NewPostgres(pool *pgxpool.Pool) *Store {
	return &Store{
		dialect: Postgres,
		base:    pgxRunner{q: pool},
		inTx: func(ctx context.Context, fn func(r runner) error) error {
			return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
				return fn(pgxRunner{q: tx})
			})
		},
		close: func() error {
			pool.Close()
			return nil
		},
	}
}

// OpenPostgres connects to url and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", store.ErrTransport, err)
	}
	return NewPostgres(pool), nil
}
