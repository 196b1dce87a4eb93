// Package resource implements the generic read path for any entity kind:
// a Store capability, a Service that turns store results into tagged
// envelopes, and an HTTP Handler that renders envelopes.
package resource

import (
	"strconv"
	"strings"

	"github.com/HerbHall/stampd/internal/errs"
)

// Record is an entity as a set of attribute values. Stores fill it with
// exactly the attributes that were projected.
type Record map[string]any

// Project returns a copy of r holding only the named attributes. An empty
// names list keeps everything.
func (r Record) Project(names []string) Record {
	if len(names) == 0 {
		return r.Clone()
	}
	out := make(Record, len(names))
	for _, n := range names {
		if v, ok := r[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID is the canonical identifier of a stored entity: the storage engine's
// native 64-bit integer key.
type ID int64

// ParseID canonicalizes a raw identifier. Only unsigned base-10 integers in
// 1..MaxInt64 are accepted, surrounding whitespace aside; a sign prefix or
// anything else is a validation error so that a malformed identifier never
// reaches the store.
func ParseID(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errs.Invalid("id", "must not be empty")
	}
	if s[0] < '0' || s[0] > '9' {
		return 0, errs.Invalid("id", "%q is not an unsigned decimal integer", raw)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.Invalid("id", "%q is not a 64-bit integer", raw)
	}
	if n < 1 {
		return 0, errs.Invalid("id", "must be positive, got %d", n)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
