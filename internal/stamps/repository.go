package stamps

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/resource"
	"github.com/HerbHall/stampd/internal/store"
)

// Compile-time interface guard.
var _ resource.Store = (*Repository)(nil)

// Repository persists stamps. It is a resource.Store, so the generic
// service and handler serve it directly.
type Repository struct {
	*resource.SQLStore
	st *store.Store
}

// NewRepository runs the stamps migrations on st and returns a Repository
// bound to it.
func NewRepository(ctx context.Context, st *store.Store) (*Repository, error) {
	if err := st.Migrate(ctx, Kind, Migrations(st.Dialect())); err != nil {
		return nil, fmt.Errorf("stamps migrations: %w", err)
	}
	return newRepository(st), nil
}

func newRepository(st *store.Store) *Repository {
	return &Repository{
		SQLStore: resource.NewSQLStore(st.DB(), st.Dialect(), resource.Schema{
			Table:   Table,
			Prepare: prepare,
		}),
		st: st,
	}
}

// InTx runs fn with a Repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.st.Tx(ctx, func(tx *sql.Tx) error {
		return fn(&Repository{SQLStore: r.SQLStore.WithTx(tx), st: r.st})
	})
}

// GetByID returns the stamp with id, restricted to fields when non-empty.
func (r *Repository) GetByID(ctx context.Context, id resource.ID, fields []string) (resource.Record, error) {
	return r.Get(ctx, id, fields)
}

// CreateStamp validates and stores a new stamp. Nothing is written when
// validation fails.
func (r *Repository) CreateStamp(ctx context.Context, hash string, typ Type) (Stamp, error) {
	rec, err := r.Create(ctx, resource.Record{"hash": hash, "type": string(typ)})
	if err != nil {
		return Stamp{}, err
	}
	return FromRecord(rec)
}

// prepare checks create input and stamps the protocol.
func prepare(rec resource.Record) (resource.Record, error) {
	hash, _ := rec["hash"].(string)
	if strings.TrimSpace(hash) == "" {
		return nil, errs.Invalid("hash", "is required")
	}

	raw, _ := rec["type"].(string)
	typ, err := ParseType(raw)
	if err != nil {
		return nil, err
	}

	if p, ok := rec["protocol"]; ok && p != Protocol {
		return nil, errs.Invalid("protocol", "must be %q", Protocol)
	}

	rec["hash"] = hash
	rec["type"] = string(typ)
	rec["protocol"] = Protocol
	return rec, nil
}
