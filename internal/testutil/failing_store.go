package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/planrollup/internal/store"
)

// FailingStore passes calls through to Store but returns Err from the
// Nth call (counting from 1) matching Op and Table. An empty Table
// matches every table. FailOn <= 0 fails every matching call.
type FailingStore struct {
	store.Store
	Op     string
	Table  string
	FailOn int
	Err    error

	mu    sync.Mutex
	count int
	calls map[string]int
}

// Calls reports how many times op ran against table.
func (f *FailingStore) Calls(op, table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+" "+table]
}

func (f *FailingStore) trip(op, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op+" "+table]++
	if op != f.Op || (f.Table != "" && table != f.Table) {
		return nil
	}
	f.count++
	if f.FailOn <= 0 || f.count == f.FailOn {
		return f.Err
	}
	return nil
}

func (f *FailingStore) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	if err := f.trip("insert", table); err != nil {
		return nil, err
	}
	return f.Store.Insert(ctx, table, rows)
}

func (f *FailingStore) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if err := f.trip("select", table); err != nil {
		return nil, err
	}
	return f.Store.Select(ctx, table, q)
}

func (f *FailingStore) Update(ctx context.Context, table string, filters []store.Filter, patch store.Row) (int, error) {
	if err := f.trip("update", table); err != nil {
		return 0, err
	}
	return f.Store.Update(ctx, table, filters, patch)
}

func (f *FailingStore) Delete(ctx context.Context, table string, filters []store.Filter) (int, error) {
	if err := f.trip("delete", table); err != nil {
		return 0, err
	}
	return f.Store.Delete(ctx, table, filters)
}
