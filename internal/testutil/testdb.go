package testutil

import (
	"testing"

	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/store/sqlstore"
)

// NewTestStore opens an in-memory SQLite store with the schema applied.
// It is closed when the test completes.
func NewTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewTestRepos returns repositories over a fresh in-memory store.
func NewTestRepos(t *testing.T) (*sqlstore.Store, *repository.Repos) {
	t.Helper()
	s := NewTestStore(t)
	return s, repository.New(s)
}
