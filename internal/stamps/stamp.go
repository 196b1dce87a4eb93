// Package stamps serves timestamp proof requests ("stamps") through the
// generic resource layer.
package stamps

import (
	"fmt"
	"strconv"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/resource"
)

// Kind is the resource kind, the URL segment and the field-selection key.
const Kind = "stamps"

// Protocol is the proof protocol recorded on every stamp.
const Protocol = "opentimestamps"

// Type names the digest algorithm of a stamp's hash.
type Type string

const (
	TypeSHA256 Type = "sha256"

	DefaultType = TypeSHA256
)

// ParseType validates s as a stamp type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeSHA256:
		return TypeSHA256, nil
	case "":
		return "", errs.Invalid("type", "is required")
	}
	return "", errs.Invalid("type", "unsupported stamp type %q", s)
}

// Stamp is one request to timestamp a hash.
type Stamp struct {
	ID       int64  `json:"id"`
	Protocol string `json:"protocol"`
	Type     Type   `json:"type"`
	Hash     string `json:"hash"`
}

// Record returns s as a resource record.
func (s Stamp) Record() resource.Record {
	return resource.Record{
		"id":       s.ID,
		"protocol": s.Protocol,
		"type":     string(s.Type),
		"hash":     s.Hash,
	}
}

// FromRecord reads a stamp from a stored or presented record. Absent
// attributes are left zero.
func FromRecord(r resource.Record) (Stamp, error) {
	var s Stamp
	switch id := r["id"].(type) {
	case nil:
	case int64:
		s.ID = id
	case int:
		s.ID = int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Stamp{}, fmt.Errorf("stamp id %q: %w", id, err)
		}
		s.ID = n
	default:
		return Stamp{}, fmt.Errorf("stamp id has unexpected type %T", id)
	}
	s.Protocol, _ = r["protocol"].(string)
	if t, ok := r["type"].(string); ok {
		s.Type = Type(t)
	}
	s.Hash, _ = r["hash"].(string)
	return s, nil
}
