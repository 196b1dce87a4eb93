package resource

import (
	"context"
	"fmt"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/query"
)

// Presenter maps a stored row to its client-facing shape. It must be pure.
type Presenter func(Record) Record

// Service applies backend-agnostic rules between the transport and a Store.
// It never returns store failures as errors from the read path; every
// outcome is an Envelope.
type Service struct {
	store   Store
	present Presenter
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPresenter sets the row presenter. The default is the identity.
func WithPresenter(p Presenter) ServiceOption {
	return func(s *Service) { s.present = p }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		present: func(r Record) Record { return r },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the resource kind served.
func (s *Service) Kind() string {
	return s.store.Kind()
}

// FetchOne canonicalizes rawID and looks the entity up.
func (s *Service) FetchOne(ctx context.Context, rawID string, spec query.Spec) (env Envelope) {
	defer contain(&env)

	id, err := ParseID(rawID)
	if err != nil {
		return Invalid(err)
	}

	fields, _ := spec.Fields(s.store.Kind())
	rec, err := s.store.Get(ctx, id, fields)
	if err != nil {
		return classify(err)
	}
	if rec == nil {
		return NotFound(errs.NotFound(s.store.Kind(), id.String()))
	}
	return Single(s.shape(rec, fields))
}

// FetchPage runs a list query. An empty result is a Page, never NotFound.
func (s *Service) FetchPage(ctx context.Context, spec query.Spec) (env Envelope) {
	defer contain(&env)

	page, err := s.store.List(ctx, spec)
	if err != nil {
		return classify(err)
	}

	fields, _ := spec.Fields(s.store.Kind())
	rows := make([]Record, len(page.Rows))
	for i, r := range page.Rows {
		rows[i] = s.shape(r, fields)
	}
	return PageOf(rows, page.Total)
}

// Create persists attrs through the store and returns the presented entity.
// Validation failures come back as *errs.ValidationError.
func (s *Service) Create(ctx context.Context, attrs Record) (Record, error) {
	rec, err := s.store.Create(ctx, attrs)
	if err != nil {
		return nil, err
	}
	return s.present(rec), nil
}

func (s *Service) shape(r Record, fields []string) Record {
	out := s.present(r.Clone())
	if len(fields) > 0 {
		out = out.Project(fields)
	}
	return out
}

func classify(err error) Envelope {
	switch {
	case errs.IsInvalid(err):
		return Invalid(err)
	case errs.IsNotFound(err):
		return NotFound(err)
	default:
		return Failed(err)
	}
}

// contain turns a panic below the service into a Failed envelope so it never
// reaches the transport unhandled.
func contain(env *Envelope) {
	if r := recover(); r != nil {
		*env = Failed(fmt.Errorf("recovered panic: %v", r))
	}
}
