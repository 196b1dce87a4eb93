package resource

import "net/http"

// Outcome tags an Envelope.
type Outcome int

const (
	OutcomeSingle Outcome = iota
	OutcomePage
	OutcomeNotFound
	OutcomeInvalid
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSingle:
		return "single"
	case OutcomePage:
		return "page"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// HTTPStatus is the status an outcome maps to when errors are reported
// faithfully.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeSingle, OutcomePage:
		return http.StatusOK
	case OutcomeNotFound:
		return http.StatusNotFound
	case OutcomeInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Envelope is the tagged result of a service call, before any transport
// rendering. Only the fields belonging to Outcome are set.
type Envelope struct {
	Outcome Outcome
	Entity  Record   // OutcomeSingle
	Rows    []Record // OutcomePage, never nil
	Total   int      // OutcomePage
	Reason  string   // OutcomeInvalid, client-safe
	Err     error    // OutcomeNotFound, OutcomeInvalid, OutcomeFailed; operator-facing
}

// Single wraps one entity.
func Single(entity Record) Envelope {
	return Envelope{Outcome: OutcomeSingle, Entity: entity}
}

// PageOf wraps a window of rows and the total match count.
func PageOf(rows []Record, total int) Envelope {
	if rows == nil {
		rows = []Record{}
	}
	return Envelope{Outcome: OutcomePage, Rows: rows, Total: total}
}

// NotFound signals an absent single resource.
func NotFound(err error) Envelope {
	return Envelope{Outcome: OutcomeNotFound, Err: err}
}

// Invalid signals malformed client input.
func Invalid(err error) Envelope {
	return Envelope{Outcome: OutcomeInvalid, Reason: err.Error(), Err: err}
}

// Failed signals a contained backend or unexpected failure.
func Failed(err error) Envelope {
	return Envelope{Outcome: OutcomeFailed, Err: err}
}
