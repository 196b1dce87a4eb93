package stamps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HerbHall/stampd/internal/config"
	"github.com/HerbHall/stampd/internal/plugin"
	"github.com/HerbHall/stampd/internal/resource"
	"github.com/HerbHall/stampd/internal/server"
	"github.com/HerbHall/stampd/internal/store"
	"github.com/HerbHall/stampd/internal/testutil"
)

type apiFixture struct {
	handler http.Handler
	store   *store.Store
	plugin  *Plugin
	logs    *observer.ObservedLogs
}

func newAPI(t *testing.T, policy string, stamps int) *apiFixture {
	t.Helper()
	st := testutil.NewStore(t)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	p := New(st)
	reg := plugin.NewRegistry(logger)
	require.NoError(t, reg.Register(p))

	v := viper.New()
	config.SetDefaults(v)
	v.Set("plugins.stamps.status_policy", policy)
	require.NoError(t, reg.InitAll(config.New(v)))

	for _, h := range testutil.Hashes(stamps) {
		_, err := p.Repository().CreateStamp(context.Background(), h, TypeSHA256)
		require.NoError(t, err)
	}

	srv := server.New(server.Options{}, reg, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &apiFixture{handler: srv.Handler(), store: st, plugin: p, logs: logs}
}

func (f *apiFixture) get(t *testing.T, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) resource.PageResponse {
	t.Helper()
	var page resource.PageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	return page
}

func TestGetStamp(t *testing.T) {
	api := newAPI(t, "compat", 3)

	w := api.get(t, "/api/v1/stamps/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, map[string]any{
		"id":       "2",
		"protocol": Protocol,
		"type":     "sha256",
		"hash":     testutil.Hash("doc-2"),
	}, body)
}

func TestGetStamp_FieldSelection(t *testing.T) {
	api := newAPI(t, "compat", 1)

	for _, params := range []url.Values{
		{"fields[stamps]": {"hash"}},
		{"fields": {"hash"}},
		{"fields": {`{"stamps":["hash"]}`}},
	} {
		w := api.get(t, "/api/v1/stamps/1", params)
		require.Equal(t, http.StatusOK, w.Code, params.Encode())

		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, map[string]any{"hash": testutil.Hash("doc-1")}, body, params.Encode())
	}
}

func TestGetStamp_CompatRejections(t *testing.T) {
	api := newAPI(t, "compat", 1)

	for _, path := range []string{
		"/api/v1/stamps/999",
		"/api/v1/stamps/abc",
		"/api/v1/stamps/0",
		"/api/v1/stamps/-4",
		"/api/v1/stamps/+1",
		"/api/v1/stamps/99999999999999999999",
	} {
		w := api.get(t, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
	}

	w := api.get(t, "/api/v1/stamps/1", url.Values{"fields[stamps]": {"secret"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetStamp_StrictRejections(t *testing.T) {
	api := newAPI(t, "strict", 1)

	w := api.get(t, "/api/v1/stamps/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	w = api.get(t, "/api/v1/stamps/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var p server.Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, server.ProblemType(http.StatusBadRequest), p.Type)
	assert.Contains(t, p.Detail, "id")
	assert.Equal(t, "/api/v1/stamps/abc", p.Instance)
	assert.Equal(t, w.Header().Get(server.RequestIDHeader), p.RequestID)

	w = api.get(t, "/api/v1/stamps/+1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStamps_Window(t *testing.T) {
	api := newAPI(t, "compat", 25)

	w := api.get(t, "/api/v1/stamps", url.Values{"offset": {"20"}, "limit": {"10"}})
	require.Equal(t, http.StatusOK, w.Code)

	page := decodePage(t, w)
	assert.Equal(t, 25, page.Count)
	require.Len(t, page.Rows, 5)
	assert.Equal(t, "21", page.Rows[0]["id"])
	assert.Equal(t, "25", page.Rows[4]["id"])
}

func TestListStamps_DefaultWindowAndSort(t *testing.T) {
	api := newAPI(t, "compat", 3)

	w := api.get(t, "/api/v1/stamps", url.Values{"sort": {"-id"}})
	require.Equal(t, http.StatusOK, w.Code)

	page := decodePage(t, w)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, "3", page.Rows[0]["id"])
	assert.Equal(t, "1", page.Rows[2]["id"])
}

func TestListStamps_Filters(t *testing.T) {
	api := newAPI(t, "compat", 5)
	target := testutil.Hash("doc-4")

	w := api.get(t, "/api/v1/stamps", url.Values{
		"filters": {`{"hash":"` + target + `"}`},
		"fields":  {"id,hash"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	page := decodePage(t, w)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, map[string]any{"id": "4", "hash": target}, map[string]any(page.Rows[0]))

	w = api.get(t, "/api/v1/stamps", url.Values{"filter[id][in]": {"1,3"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodePage(t, w).Count)
}

func TestListStamps_EmptyIsPageNotNotFound(t *testing.T) {
	api := newAPI(t, "compat", 2)

	w := api.get(t, "/api/v1/stamps", url.Values{"filters": {`{"hash":"nope"}`}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rows":[],"count":0}`, w.Body.String())
}

func TestListStamps_InvalidQuery(t *testing.T) {
	compat := newAPI(t, "compat", 1)
	strict := newAPI(t, "strict", 1)

	for _, params := range []url.Values{
		{"limit": {"0"}},
		{"offset": {"-1"}},
		{"limit": {"ten"}},
		{"filters": {"{not json"}},
		{"sort": {"color"}},
	} {
		w := compat.get(t, "/api/v1/stamps", params)
		assert.Equal(t, http.StatusNotFound, w.Code, params.Encode())
		assert.Empty(t, w.Body.String(), params.Encode())

		w = strict.get(t, "/api/v1/stamps", params)
		assert.Equal(t, http.StatusBadRequest, w.Code, params.Encode())
	}
}

func TestStoreFailureIsContained(t *testing.T) {
	for _, tc := range []struct {
		policy string
		status int
	}{
		{"compat", http.StatusNotFound},
		{"strict", http.StatusInternalServerError},
	} {
		t.Run(tc.policy, func(t *testing.T) {
			api := newAPI(t, tc.policy, 1)
			require.NoError(t, api.store.Close())

			w := api.get(t, "/api/v1/stamps/1", nil)
			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "closed")

			w = api.get(t, "/api/v1/stamps", nil)
			assert.Equal(t, tc.status, w.Code)

			assert.Equal(t, 2, api.logs.FilterMessage("request failed").Len())
		})
	}
}

func TestPlugin_HealthAndInfo(t *testing.T) {
	api := newAPI(t, "compat", 0)
	assert.Equal(t, "ok", api.plugin.Health(context.Background()).Status)
	assert.Equal(t, Kind, api.plugin.Info().Name)

	require.NoError(t, api.store.Close())
	assert.Equal(t, "degraded", api.plugin.Health(context.Background()).Status)
}

func TestPlugin_RejectsUnknownPolicy(t *testing.T) {
	p := New(testutil.NewStore(t))
	v := viper.New()
	v.Set("status_policy", "lenient")
	assert.Error(t, p.Init(config.New(v), zap.NewNop()))
}
