package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/query"
	"github.com/HerbHall/stampd/internal/querysql"
)

// Schema describes one SQL-backed resource kind.
type Schema struct {
	Table querysql.Table

	// Prepare validates create input and fills defaults. It runs before any
	// statement is sent, so a rejected create has no side effect.
	Prepare func(Record) (Record, error)
}

// Compile-time interface guard.
var _ Store = (*SQLStore)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store for any table described by a Schema.
type SQLStore struct {
	db      querier
	dialect querysql.Dialect
	schema  Schema
}

// NewSQLStore creates a Store over db. The table must already exist.
func NewSQLStore(db *sql.DB, dialect querysql.Dialect, schema Schema) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, schema: schema}
}

// WithTx returns a copy of s whose statements run inside tx.
func (s *SQLStore) WithTx(tx *sql.Tx) *SQLStore {
	return &SQLStore{db: tx, dialect: s.dialect, schema: s.schema}
}

func (s *SQLStore) Kind() string {
	return s.schema.Table.Kind
}

func (s *SQLStore) Get(ctx context.Context, id ID, fields []string) (Record, error) {
	q, attrs, err := querysql.CompileGet(s.schema.Table, fields, s.dialect)
	if err != nil {
		return nil, err
	}

	dest, ptrs := scanTargets(len(attrs))
	err = s.db.QueryRowContext(ctx, q, int64(id)).Scan(ptrs...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(s.Kind(), id.String())
		}
		return nil, errs.Backend(fmt.Sprintf("get %s %d", s.Kind(), id), err)
	}
	return toRecord(attrs, dest), nil
}

func (s *SQLStore) List(ctx context.Context, spec query.Spec) (Page, error) {
	l, err := querysql.CompileList(s.schema.Table, spec, s.dialect)
	if err != nil {
		return Page{}, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, l.Count.Query, l.Count.Args...).Scan(&total); err != nil {
		return Page{}, errs.Backend("count "+s.Kind(), err)
	}

	rows, err := s.db.QueryContext(ctx, l.Page.Query, l.Page.Args...)
	if err != nil {
		return Page{}, errs.Backend("list "+s.Kind(), err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		dest, ptrs := scanTargets(len(l.Attrs))
		if err := rows.Scan(ptrs...); err != nil {
			return Page{}, errs.Backend("scan "+s.Kind(), err)
		}
		out = append(out, toRecord(l.Attrs, dest))
	}
	if err := rows.Err(); err != nil {
		return Page{}, errs.Backend("iterate "+s.Kind(), err)
	}

	return Page{Rows: out, Total: total}, nil
}

func (s *SQLStore) Create(ctx context.Context, attrs Record) (Record, error) {
	t := s.schema.Table
	if _, ok := attrs[t.Key]; ok {
		return nil, errs.Invalid(t.Key, "is assigned by the store")
	}

	rec := attrs.Clone()
	if s.schema.Prepare != nil {
		var err error
		if rec, err = s.schema.Prepare(rec); err != nil {
			return nil, err
		}
	}

	// Insert in column order so the statement text is stable.
	var cols []string
	var args []any
	for _, a := range t.Attrs() {
		if v, ok := rec[a]; ok && a != t.Key {
			cols = append(cols, a)
			args = append(args, v)
		}
	}
	for a := range rec {
		if a != t.Key && !containsAttr(cols, a) {
			return nil, errs.Invalid(a, "unknown attribute for %s", t.Kind)
		}
	}
	if len(cols) == 0 {
		return nil, errs.Invalid("", "no attributes to create %s", t.Kind)
	}

	q, err := querysql.CompileInsert(t, cols, s.dialect)
	if err != nil {
		return nil, err
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return nil, errs.Backend("create "+s.Kind(), err)
	}
	rec[t.Key] = id
	return rec, nil
}

func containsAttr(list []string, a string) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func scanTargets(n int) ([]any, []any) {
	dest := make([]any, n)
	ptrs := make([]any, n)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	return dest, ptrs
}

// toRecord pairs attrs with scanned values. Drivers hand back text columns
// of custom types (PostgreSQL enums) as []byte; those become strings.
func toRecord(attrs []string, vals []any) Record {
	rec := make(Record, len(attrs))
	for i, a := range attrs {
		if b, ok := vals[i].([]byte); ok {
			rec[a] = string(b)
			continue
		}
		rec[a] = vals[i]
	}
	return rec
}
