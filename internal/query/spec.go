// Package query describes what a client wants back from a resource list or
// lookup: projected fields, filters, sort order and the pagination window.
// A Spec never interprets attribute names; the store behind it decides which
// attributes exist.
package query

import "slices"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNe   Operator = "ne"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		return true
	}
	return false
}

// Constraint is a single filter condition on one attribute. For OpIn the
// Value is a []any; for every other operator it is a scalar.
type Constraint struct {
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

// SortField is one (attribute, direction) pair of an ordering.
type SortField struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pagination is a window over a result set. A zero Limit leaves the window
// size to the backend.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Spec is an immutable description of a query. The zero value selects all
// fields of all rows in backend-default order and window.
type Spec struct {
	fields  map[string][]string
	filters map[string]Constraint
	sort    []SortField
	page    *Pagination
}

// Option configures a Spec under construction.
type Option func(*Spec)

// New builds a Spec from options. Later options override earlier ones for the
// same kind, attribute or window.
func New(opts ...Option) Spec {
	var s Spec
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithFields sets the projection for kind. Duplicate names are dropped,
// first occurrence wins.
func WithFields(kind string, fields ...string) Option {
	return func(s *Spec) {
		if s.fields == nil {
			s.fields = make(map[string][]string)
		}
		uniq := make([]string, 0, len(fields))
		for _, f := range fields {
			if f != "" && !slices.Contains(uniq, f) {
				uniq = append(uniq, f)
			}
		}
		s.fields[kind] = uniq
	}
}

// WithFilter adds a constraint on attr. A list value is copied.
func WithFilter(attr string, op Operator, value any) Option {
	if list, ok := value.([]any); ok {
		value = slices.Clone(list)
	}
	return func(s *Spec) {
		if s.filters == nil {
			s.filters = make(map[string]Constraint)
		}
		s.filters[attr] = Constraint{Op: op, Value: value}
	}
}

// WithSort appends sort keys in order.
func WithSort(fields ...SortField) Option {
	return func(s *Spec) {
		s.sort = append(s.sort, fields...)
	}
}

// WithPage sets the pagination window.
func WithPage(offset, limit int) Option {
	return func(s *Spec) {
		s.page = &Pagination{Offset: offset, Limit: limit}
	}
}

// Fields returns the projection for kind. ok is false when the client did not
// ask for a projection, meaning all fields.
func (s Spec) Fields(kind string) (fields []string, ok bool) {
	f, ok := s.fields[kind]
	if !ok {
		return nil, false
	}
	return slices.Clone(f), true
}

// Filters returns a copy of the filter map.
func (s Spec) Filters() map[string]Constraint {
	out := make(map[string]Constraint, len(s.filters))
	for k, v := range s.filters {
		if list, ok := v.Value.([]any); ok {
			v.Value = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// Sort returns a copy of the ordering.
func (s Spec) Sort() []SortField {
	return slices.Clone(s.sort)
}

// Page returns the pagination window, if one was requested.
func (s Spec) Page() (Pagination, bool) {
	if s.page == nil {
		return Pagination{}, false
	}
	return *s.page, true
}
