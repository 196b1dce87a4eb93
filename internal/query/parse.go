package query

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/HerbHall/stampd/internal/errs"
)

// operatorAliases maps accepted operator spellings, including the
// ORM-style names older clients send in the filters JSON, to operators.
var operatorAliases = map[string]Operator{
	"eq":       OpEq,
	"equals":   OpEq,
	"ne":       OpNe,
	"not":      OpNe,
	"gt":       OpGt,
	"gte":      OpGte,
	"lt":       OpLt,
	"lte":      OpLte,
	"like":     OpLike,
	"contains": OpLike,
	"in":       OpIn,
}

// Parse builds a Spec from URL query parameters. kind names the resource
// being requested; a bare "fields" parameter applies to it.
//
// Accepted parameters:
//
//	fields=a,b            fields[kind]=a,b
//	fields={"kind":["a","b"]}
//	sort=a,-b             sort=a:desc
//	filter[attr]=v        filter[attr][op]=v
//	filters={"attr":v, "attr2":{"gt":1}, "attr3":[1,2]}
//	offset=N              limit=N
//
// Parse never checks attribute names. Malformed values yield an
// *errs.ValidationError.
func Parse(values url.Values, kind string) (Spec, error) {
	var opts []Option

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		base, path := splitKey(key)

		switch {
		case base == "fields" && len(path) == 0 && isJSONObject(vals):
			for _, raw := range vals {
				fopts, err := parseFieldsJSON(raw)
				if err != nil {
					return Spec{}, err
				}
				opts = append(opts, fopts...)
			}

		case base == "fields" && len(path) <= 1:
			target := kind
			if len(path) == 1 {
				target = path[0]
			}
			if names := splitList(vals); len(names) > 0 {
				opts = append(opts, WithFields(target, names...))
			}

		case base == "sort" && len(path) == 0:
			fields, err := parseSort(splitList(vals))
			if err != nil {
				return Spec{}, err
			}
			opts = append(opts, WithSort(fields...))

		case base == "filter" && (len(path) == 1 || len(path) == 2):
			opt, err := parseFilterParam(path, vals)
			if err != nil {
				return Spec{}, err
			}
			opts = append(opts, opt)

		case base == "filters" && len(path) == 0:
			for _, raw := range vals {
				fopts, err := parseFiltersJSON(raw)
				if err != nil {
					return Spec{}, err
				}
				opts = append(opts, fopts...)
			}
		}
	}

	pageOpt, err := parsePage(values)
	if err != nil {
		return Spec{}, err
	}
	if pageOpt != nil {
		opts = append(opts, pageOpt)
	}

	return New(opts...), nil
}

// splitKey splits "filter[id][gt]" into ("filter", ["id", "gt"]). Keys
// without well-formed brackets are returned whole with no path.
func splitKey(key string) (string, []string) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return key, nil
	}
	base := key[:i]
	inner := key[i+1 : len(key)-1]
	parts := strings.Split(inner, "][")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, "[]") {
			return key, nil
		}
	}
	return base, parts
}

// splitList flattens comma separated values, dropping empty entries.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isJSONObject(vals []string) bool {
	return len(vals) > 0 && strings.HasPrefix(strings.TrimSpace(vals[0]), "{")
}

// parseFieldsJSON decodes a fields object keyed by resource kind.
func parseFieldsJSON(raw string) ([]Option, error) {
	var m map[string][]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errs.Invalid("fields", "must map kinds to attribute lists: %v", err)
	}
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var opts []Option
	for _, k := range kinds {
		if names := splitList(m[k]); len(names) > 0 {
			opts = append(opts, WithFields(k, names...))
		}
	}
	return opts, nil
}

func parseSort(tokens []string) ([]SortField, error) {
	fields := make([]SortField, 0, len(tokens))
	for _, tok := range tokens {
		sf := SortField{Direction: Asc}
		switch {
		case strings.HasPrefix(tok, "-"):
			sf.Field, sf.Direction = tok[1:], Desc
		case strings.HasPrefix(tok, "+"):
			sf.Field = tok[1:]
		case strings.Contains(tok, ":"):
			name, dir, _ := strings.Cut(tok, ":")
			sf.Field = name
			switch Direction(strings.ToLower(dir)) {
			case Asc:
			case Desc:
				sf.Direction = Desc
			default:
				return nil, errs.Invalid("sort", "unknown direction %q", dir)
			}
		default:
			sf.Field = tok
		}
		if sf.Field == "" {
			return nil, errs.Invalid("sort", "empty attribute in %q", tok)
		}
		fields = append(fields, sf)
	}
	return fields, nil
}

func parseFilterParam(path, vals []string) (Option, error) {
	attr := path[0]
	op := OpEq
	if len(path) == 2 {
		alias, ok := operatorAliases[strings.ToLower(path[1])]
		if !ok {
			return nil, errs.Invalid("filter", "unknown operator %q on %q", path[1], attr)
		}
		op = alias
	}
	if op == OpIn {
		items := splitList(vals)
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = item
		}
		return WithFilter(attr, OpIn, list), nil
	}
	if len(vals) == 0 {
		return nil, errs.Invalid("filter", "missing value for %q", attr)
	}
	return WithFilter(attr, op, vals[0]), nil
}

// parseFiltersJSON decodes the filters parameter. Each attribute maps to a
// scalar (equality), an array (membership) or a single-operator object.
func parseFiltersJSON(raw string) ([]Option, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, errs.Invalid("filters", "must be a JSON object: %v", err)
	}

	attrs := make([]string, 0, len(m))
	for attr := range m {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	opts := make([]Option, 0, len(m))
	for _, attr := range attrs {
		switch v := m[attr].(type) {
		case map[string]any:
			if len(v) != 1 {
				return nil, errs.Invalid("filters", "%q must carry exactly one operator", attr)
			}
			for name, operand := range v {
				op, ok := operatorAliases[strings.ToLower(name)]
				if !ok {
					return nil, errs.Invalid("filters", "unknown operator %q on %q", name, attr)
				}
				val, err := jsonOperand(attr, op, operand)
				if err != nil {
					return nil, err
				}
				opts = append(opts, WithFilter(attr, op, val))
			}
		case []any:
			val, err := jsonOperand(attr, OpIn, v)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithFilter(attr, OpIn, val))
		default:
			val, err := jsonScalar(attr, v)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithFilter(attr, OpEq, val))
		}
	}
	return opts, nil
}

func jsonOperand(attr string, op Operator, v any) (any, error) {
	if op != OpIn {
		return jsonScalar(attr, v)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errs.Invalid("filters", "%q: in expects an array", attr)
	}
	out := make([]any, len(list))
	for i, item := range list {
		s, err := jsonScalar(attr, item)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// jsonScalar converts a decoded JSON scalar into a value a database driver
// accepts. Numbers become int64 when integral, float64 otherwise.
func jsonScalar(attr string, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, errs.Invalid("filters", "%q: bad number %q", attr, x.String())
		}
		return f, nil
	case string, bool:
		return x, nil
	case nil:
		return nil, errs.Invalid("filters", "%q: null is not comparable", attr)
	default:
		return nil, errs.Invalid("filters", "%q: nested values are not supported", attr)
	}
}

func parsePage(values url.Values) (Option, error) {
	rawOffset, rawLimit := values.Get("offset"), values.Get("limit")
	if rawOffset == "" && rawLimit == "" {
		return nil, nil
	}

	offset, limit := 0, 0
	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)
		if err != nil || n < 0 {
			return nil, errs.Invalid("offset", "must be a non-negative integer, got %q", rawOffset)
		}
		offset = n
	}
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			return nil, errs.Invalid("limit", "must be a positive integer, got %q", rawLimit)
		}
		limit = n
	}
	return WithPage(offset, limit), nil
}
