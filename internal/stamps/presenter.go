package stamps

import (
	"strconv"

	"github.com/HerbHall/stampd/internal/resource"
)

// Present renders a stored stamp row for clients. The id goes out as a
// decimal string so JavaScript clients keep full 64-bit precision.
func Present(r resource.Record) resource.Record {
	out := r.Clone()
	if id, ok := out["id"].(int64); ok {
		out["id"] = strconv.FormatInt(id, 10)
	}
	return out
}
