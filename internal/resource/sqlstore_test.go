package resource

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/query"
	"github.com/HerbHall/stampd/internal/querysql"
	"github.com/HerbHall/stampd/internal/store"
)

var widgetSchema = Schema{
	Table: querysql.Table{
		Kind: "widgets",
		Name: "widget_parts",
		Key:  "id",
		Columns: []querysql.Column{
			{Attr: "id", Name: "part_id", Filterable: true, Sortable: true},
			{Attr: "name", Name: "label", Filterable: true, Sortable: true},
			{Attr: "size", Name: "size", Filterable: true},
		},
	},
	Prepare: func(r Record) (Record, error) {
		if _, ok := r["name"]; !ok {
			return nil, errs.Invalid("name", "is required")
		}
		return r, nil
	},
}

func newWidgetStore(t *testing.T) *SQLStore {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	err = st.Migrate(context.Background(), "widgets", []store.Migration{{
		Version:     1,
		Description: "create widget_parts",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE widget_parts (
				part_id INTEGER PRIMARY KEY AUTOINCREMENT,
				label   TEXT NOT NULL,
				size    INTEGER
			)`)
			return err
		},
	}})
	require.NoError(t, err)
	return NewSQLStore(st.DB(), st.Dialect(), widgetSchema)
}

func TestSQLStore_CreateGetList(t *testing.T) {
	ctx := context.Background()
	s := newWidgetStore(t)
	assert.Equal(t, "widgets", s.Kind())

	for i, name := range []string{"bolt", "nut", "washer"} {
		rec, err := s.Create(ctx, Record{"name": name, "size": int64(i + 1)})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), rec["id"])
	}

	rec, err := s.Get(ctx, 2, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, Record{"name": "nut"}, rec)

	page, err := s.List(ctx, query.New(
		query.WithFilter("size", query.OpGte, int64(2)),
		query.WithSort(query.SortField{Field: "name", Direction: query.Desc}),
		query.WithPage(0, 1),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "washer", page.Rows[0]["name"])
}

func TestSQLStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newWidgetStore(t)

	_, err := s.Get(ctx, 1, nil)
	assert.True(t, errs.IsNotFound(err))

	_, err = s.Create(ctx, Record{"size": int64(1)})
	assert.True(t, errs.IsInvalid(err), "Prepare rejects")

	_, err = s.Create(ctx, Record{"name": "x", "weight": 3})
	assert.True(t, errs.IsInvalid(err), "unknown attribute")

	_, err = s.List(ctx, query.New(query.WithSort(query.SortField{Field: "size"})))
	assert.True(t, errs.IsInvalid(err), "size is not sortable")

	page, err := s.List(ctx, query.New())
	require.NoError(t, err)
	assert.Zero(t, page.Total, "rejected creates wrote nothing")
}
