package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/query"
)

// Window defaults applied when a Spec leaves the page size open.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Column maps a client-facing attribute to a table column.
type Column struct {
	Attr       string
	Name       string
	Filterable bool
	Sortable   bool
}

// Table describes the attributes of one resource kind.
type Table struct {
	Kind    string // resource kind, used to look up the projection
	Name    string // SQL table name
	Key     string // attribute of the primary key
	Columns []Column
}

func (t Table) column(attr string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Attr == attr {
			return c, true
		}
	}
	return Column{}, false
}

// Attrs returns every attribute in declaration order.
func (t Table) Attrs() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Attr
	}
	return out
}

// Statement is a query plus its bound arguments.
type Statement struct {
	Query string
	Args  []any
}

// List is the pair of statements backing a paginated list. Count shares the
// page query's WHERE clause and ignores the window.
type List struct {
	Page  Statement
	Count Statement
	Attrs []string // attributes selected by Page, in column order
}

// CompileList builds the page and count statements for spec.
func CompileList(t Table, spec query.Spec, d Dialect) (List, error) {
	attrs, selectList, err := projection(t, spec)
	if err != nil {
		return List{}, err
	}

	where, args, err := whereClause(t, spec.Filters())
	if err != nil {
		return List{}, err
	}

	orderBy, err := orderClause(t, spec.Sort())
	if err != nil {
		return List{}, err
	}

	offset, limit := window(spec)

	pageArgs := make([]any, 0, len(args)+2)
	pageArgs = append(pageArgs, args...)
	pageArgs = append(pageArgs, limit, offset)

	page := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		selectList, quote(t.Name), where, orderBy)
	count := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quote(t.Name), where)

	return List{
		Page:  Statement{Query: d.Rebind(page), Args: pageArgs},
		Count: Statement{Query: d.Rebind(count), Args: args},
		Attrs: attrs,
	}, nil
}

// CompileGet builds a single-row lookup by primary key. The key value is the
// only argument and is supplied by the caller. An empty fields list selects
// every attribute.
func CompileGet(t Table, fields []string, d Dialect) (string, []string, error) {
	spec := query.New()
	if len(fields) > 0 {
		spec = query.New(query.WithFields(t.Kind, fields...))
	}
	attrs, selectList, err := projection(t, spec)
	if err != nil {
		return "", nil, err
	}
	key, ok := t.column(t.Key)
	if !ok {
		return "", nil, fmt.Errorf("table %s: key attribute %q not declared", t.Name, t.Key)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", selectList, quote(t.Name), quote(key.Name))
	return d.Rebind(q), attrs, nil
}

// CompileInsert builds an INSERT for attrs that returns the generated key.
func CompileInsert(t Table, attrs []string, d Dialect) (string, error) {
	key, ok := t.column(t.Key)
	if !ok {
		return "", fmt.Errorf("table %s: key attribute %q not declared", t.Name, t.Key)
	}
	cols := make([]string, len(attrs))
	marks := make([]string, len(attrs))
	for i, a := range attrs {
		c, ok := t.column(a)
		if !ok {
			return "", errs.Invalid(a, "unknown attribute for %s", t.Kind)
		}
		cols[i] = quote(c.Name)
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quote(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "), quote(key.Name))
	return d.Rebind(q), nil
}

func projection(t Table, spec query.Spec) ([]string, string, error) {
	attrs, ok := spec.Fields(t.Kind)
	if !ok || len(attrs) == 0 {
		attrs = t.Attrs()
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		c, ok := t.column(a)
		if !ok {
			return nil, "", errs.Invalid("fields", "unknown attribute %q for %s", a, t.Kind)
		}
		if c.Name == c.Attr {
			parts[i] = quote(c.Name)
		} else {
			parts[i] = quote(c.Name) + " AS " + quote(c.Attr)
		}
	}
	return attrs, strings.Join(parts, ", "), nil
}

var comparison = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

func whereClause(t Table, filters map[string]query.Constraint) (string, []any, error) {
	if len(filters) == 0 {
		return "1 = 1", nil, nil
	}

	names := make([]string, 0, len(filters))
	for a := range filters {
		names = append(names, a)
	}
	sort.Strings(names)

	var parts []string
	var args []any
	for _, a := range names {
		cons := filters[a]
		c, ok := t.column(a)
		if !ok || !c.Filterable {
			return "", nil, errs.Invalid("filter", "attribute %q is not filterable on %s", a, t.Kind)
		}
		col := quote(c.Name)

		switch cons.Op {
		case query.OpLike:
			parts = append(parts, col+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(fmt.Sprint(cons.Value))+"%")
		case query.OpIn:
			list, ok := cons.Value.([]any)
			if !ok {
				return "", nil, errs.Invalid("filter", "%q: in expects a list", a)
			}
			if len(list) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ")
			parts = append(parts, col+" IN ("+marks+")")
			args = append(args, list...)
		default:
			sym, ok := comparison[cons.Op]
			if !ok {
				return "", nil, errs.Invalid("filter", "unknown operator %q on %q", cons.Op, a)
			}
			if _, isList := cons.Value.([]any); isList || cons.Value == nil {
				return "", nil, errs.Invalid("filter", "%q: %s expects a scalar", a, cons.Op)
			}
			parts = append(parts, col+" "+sym+" ?")
			args = append(args, cons.Value)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

// orderClause always ends with the key column so pages are stable.
func orderClause(t Table, fields []query.SortField) (string, error) {
	key, ok := t.column(t.Key)
	if !ok {
		return "", fmt.Errorf("table %s: key attribute %q not declared", t.Name, t.Key)
	}

	var parts []string
	keySeen := false
	for _, sf := range fields {
		c, ok := t.column(sf.Field)
		if !ok || !c.Sortable {
			return "", errs.Invalid("sort", "attribute %q is not sortable on %s", sf.Field, t.Kind)
		}
		dir := "ASC"
		if sf.Direction == query.Desc {
			dir = "DESC"
		}
		parts = append(parts, quote(c.Name)+" "+dir)
		if c.Attr == t.Key {
			keySeen = true
		}
	}
	if !keySeen {
		parts = append(parts, quote(key.Name)+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

func window(spec query.Spec) (offset, limit int) {
	limit = DefaultLimit
	if p, ok := spec.Page(); ok {
		offset = p.Offset
		if p.Limit > 0 {
			limit = p.Limit
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// likeEscaper makes LIKE match the value as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
