package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/HerbHall/stampd/internal/querysql"
	"github.com/HerbHall/stampd/internal/store"
)

// NewStore creates an in-memory SQLite store for testing.
// The store is automatically closed when the test completes.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewPostgresMock returns a PostgreSQL-dialect store backed by sqlmock.
// Unmet expectations fail the test at cleanup.
func NewPostgresMock(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("testutil.NewPostgresMock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		db.Close()
	})
	return store.FromDB(db, querysql.Postgres), mock
}
