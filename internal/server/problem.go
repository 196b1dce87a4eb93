package server

import (
	"encoding/json"
	"net/http"
)

// ProblemTypeBase prefixes every problem type URI stampd emits.
const ProblemTypeBase = "https://stampd.dev/problems/"

// problemSlugs lists the statuses stampd documents a problem type for.
// Any other status is reported as "about:blank" (RFC 7807 section 4.2).
var problemSlugs = map[int]string{
	http.StatusBadRequest:          "bad-request",
	http.StatusNotFound:            "not-found",
	http.StatusTooManyRequests:     "rate-limited",
	http.StatusInternalServerError: "internal-error",
}

// Problem represents an RFC 7807 Problem Details response. RequestID is an
// extension member echoing the X-Request-ID of the failed request.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ProblemType returns the type URI for status.
func ProblemType(status int) string {
	if slug, ok := problemSlugs[status]; ok {
		return ProblemTypeBase + slug
	}
	return "about:blank"
}

// NewProblem builds the problem for status. The title is the standard
// reason phrase.
func NewProblem(status int, detail string) Problem {
	return Problem{
		Type:   ProblemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// For fills Instance and RequestID from r.
func (p Problem) For(r *http.Request) Problem {
	p.Instance = r.URL.Path
	p.RequestID = RequestIDFrom(r.Context())
	return p
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Error answers r with the problem for status.
func Error(w http.ResponseWriter, r *http.Request, status int, detail string) {
	WriteProblem(w, NewProblem(status, detail).For(r))
}
