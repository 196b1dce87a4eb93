package resource

import (
	"context"

	"github.com/HerbHall/stampd/internal/query"
)

// Page is one window of a list query. Total counts every row matching the
// filters, independent of the window.
type Page struct {
	Rows  []Record
	Total int
}

// Store is the persistence capability the read path depends on. Stores hold
// no state across calls beyond their connection pool.
type Store interface {
	// Kind names the resource, e.g. "stamps". Projections in a query.Spec
	// are keyed by it.
	Kind() string

	// Get returns the entity with the given id restricted to fields (all
	// fields when empty). A missing row yields an errs.NotFoundError;
	// unknown field names yield an errs.ValidationError.
	Get(ctx context.Context, id ID, fields []string) (Record, error)

	// List returns the window of rows matching spec and the total match
	// count. An empty match set is a Page with no rows, not an error.
	List(ctx context.Context, spec query.Spec) (Page, error)

	// Create persists a new entity and returns it as stored. Missing
	// required attributes yield an errs.ValidationError and persist nothing.
	Create(ctx context.Context, attrs Record) (Record, error)
}
