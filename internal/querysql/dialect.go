// Package querysql compiles a query.Spec against a table description into
// parameterized SQL. Values are always bound as parameters, never
// interpolated, and every page query carries a deterministic ORDER BY.
package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax and the database/sql driver name.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// ParseDialect maps a configuration value to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return 0, fmt.Errorf("unknown database dialect %q", name)
}

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Driver returns the database/sql driver name registered for the dialect.
func (d Dialect) Driver() string {
	return d.String()
}

// Rebind rewrites ? placeholders into the dialect's native form.
// Queries built in this module never contain a literal '?'.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
