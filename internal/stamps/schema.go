package stamps

import (
	"database/sql"

	"github.com/HerbHall/stampd/internal/querysql"
	"github.com/HerbHall/stampd/internal/store"
)

// Table describes the stamps table to the query compiler.
var Table = querysql.Table{
	Kind: Kind,
	Name: "stamps",
	Key:  "id",
	Columns: []querysql.Column{
		{Attr: "id", Name: "id", Filterable: true, Sortable: true},
		{Attr: "protocol", Name: "protocol", Filterable: true, Sortable: true},
		{Attr: "type", Name: "type", Filterable: true, Sortable: true},
		{Attr: "hash", Name: "hash", Filterable: true, Sortable: true},
	},
}

// Migrations returns the schema steps for d.
func Migrations(d querysql.Dialect) []store.Migration {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == querysql.Postgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	return []store.Migration{
		{
			Version:     1,
			Description: "create stamps table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS stamps (
						` + idColumn + `,
						protocol TEXT NOT NULL,
						type     TEXT NOT NULL DEFAULT 'sha256' CHECK (type IN ('sha256')),
						hash     TEXT NOT NULL
					)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "index stamps by hash",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_stamps_hash ON stamps(hash)`)
				return err
			},
		},
	}
}
