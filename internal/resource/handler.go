package resource

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/plugin"
	"github.com/HerbHall/stampd/internal/query"
	"github.com/HerbHall/stampd/internal/server"
)

// StatusPolicy decides how non-success envelopes map to HTTP statuses.
type StatusPolicy int

const (
	// PolicyCompat answers every non-success outcome with 404 and an empty
	// body, matching the behavior existing API clients were built against.
	PolicyCompat StatusPolicy = iota

	// PolicyStrict answers Invalid with 400, NotFound with 404 and Failed
	// with 500, each carrying an RFC 7807 body.
	PolicyStrict
)

// ParseStatusPolicy maps a configuration value to a StatusPolicy.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch strings.ToLower(s) {
	case "", "compat":
		return PolicyCompat, nil
	case "strict":
		return PolicyStrict, nil
	}
	return 0, fmt.Errorf("unknown status policy %q (want compat or strict)", s)
}

func (p StatusPolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "compat"
}

// PageResponse is the list body.
type PageResponse struct {
	Rows  []Record `json:"rows"`
	Count int      `json:"count"`
}

// Handler adapts a Service to HTTP.
type Handler struct {
	service *Service
	policy  StatusPolicy
	logger  *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(service *Service, policy StatusPolicy, logger *zap.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

// Routes returns the read routes relative to the resource's mount point.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: h.HandleList},
		{Method: "GET", Path: "/{id}", Handler: h.HandleGet},
	}
}

// HandleGet serves a single entity by id.
//
//	@Summary		Get entity
//	@Description	Returns one entity by numeric id, optionally restricted to the requested fields.
//	@Produce		json
//	@Param			id		path	string	true	"Entity id"
//	@Param			fields	query	string	false	"Comma separated attributes to return"
//	@Success		200 {object} Record
//	@Failure		404
//	@Router			/{kind}/{id} [get]
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	spec, err := query.Parse(r.URL.Query(), h.service.Kind())
	if err != nil {
		h.render(w, r, Invalid(err))
		return
	}
	h.render(w, r, h.service.FetchOne(r.Context(), r.PathValue("id"), spec))
}

// HandleList serves a filtered, sorted, paginated list.
//
//	@Summary		List entities
//	@Description	Returns one page of entities plus the total count of rows matching the filters.
//	@Produce		json
//	@Param			fields	query	string	false	"Comma separated attributes to return"
//	@Param			sort	query	string	false	"Comma separated attributes, '-' prefix for descending"
//	@Param			filters	query	string	false	"JSON object of attribute constraints"
//	@Param			offset	query	int		false	"Rows to skip"
//	@Param			limit	query	int		false	"Page size"
//	@Success		200 {object} PageResponse
//	@Failure		404
//	@Router			/{kind} [get]
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	spec, err := query.Parse(r.URL.Query(), h.service.Kind())
	if err != nil {
		h.render(w, r, Invalid(err))
		return
	}
	h.render(w, r, h.service.FetchPage(r.Context(), spec))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, env Envelope) {
	switch env.Outcome {
	case OutcomeSingle:
		writeJSON(w, http.StatusOK, env.Entity)
		return
	case OutcomePage:
		writeJSON(w, http.StatusOK, PageResponse{Rows: env.Rows, Count: env.Total})
		return
	}

	fields := []zap.Field{
		zap.String("kind", h.service.Kind()),
		zap.String("path", r.URL.Path),
		zap.Stringer("outcome", env.Outcome),
	}
	if env.Err != nil {
		fields = append(fields, zap.Error(env.Err))
	}
	if env.Outcome == OutcomeFailed {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	if h.policy == PolicyCompat {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	server.Error(w, r, env.Outcome.HTTPStatus(), h.detail(env))
}

// detail is the client-safe problem detail for a non-success envelope.
func (h *Handler) detail(env Envelope) string {
	switch env.Outcome {
	case OutcomeInvalid:
		return env.Reason
	case OutcomeNotFound:
		return h.service.Kind() + " not found"
	}
	return "an unexpected error occurred"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
