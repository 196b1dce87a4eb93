package plugin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/config"
)

type fakePlugin struct {
	name      string
	initErr   error
	invalid   error
	gotPolicy string
	started   bool
	stopped   bool
	calls     *[]string
}

func (f *fakePlugin) Name() string    { return f.name }
func (f *fakePlugin) Version() string { return "0.0.1" }
func (f *fakePlugin) Info() Info      { return Info{Name: f.name, Version: "0.0.1"} }

func (f *fakePlugin) Init(cfg config.Config, _ *zap.Logger) error {
	f.gotPolicy = cfg.GetString("status_policy")
	return f.initErr
}

func (f *fakePlugin) Start(context.Context) error {
	f.started = true
	if f.calls != nil {
		*f.calls = append(*f.calls, "start:"+f.name)
	}
	return nil
}

func (f *fakePlugin) Stop() error {
	f.stopped = true
	if f.calls != nil {
		*f.calls = append(*f.calls, "stop:"+f.name)
	}
	return nil
}

func (f *fakePlugin) Routes() []Route {
	return []Route{{Method: "GET", Path: "", Handler: func(http.ResponseWriter, *http.Request) {}}}
}

func (f *fakePlugin) ValidateConfig() error { return f.invalid }

func (f *fakePlugin) Health(context.Context) HealthStatus { return HealthStatus{Status: "ok"} }

func newConfig(values map[string]any) config.Config {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.New(v)
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(&fakePlugin{name: "stamps"}))
	assert.Error(t, r.Register(&fakePlugin{name: "stamps"}))
}

func TestInitAll_SkipsDisabled(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	on := &fakePlugin{name: "stamps"}
	off := &fakePlugin{name: "other"}
	require.NoError(t, r.Register(on))
	require.NoError(t, r.Register(off))

	cfg := newConfig(map[string]any{
		"plugins.stamps.enabled":       true,
		"plugins.stamps.status_policy": "strict",
		"plugins.other.enabled":        false,
	})
	require.NoError(t, r.InitAll(cfg))
	require.NoError(t, r.StartAll(context.Background()))

	assert.Equal(t, "strict", on.gotPolicy)
	assert.True(t, on.started)
	assert.False(t, off.started)

	routes := r.AllRoutes()
	assert.Contains(t, routes, "stamps")
	assert.NotContains(t, routes, "other")

	health := r.Health(context.Background())
	assert.Equal(t, "ok", health["stamps"].Status)
	assert.NotContains(t, health, "other")

	assert.Len(t, r.All(), 2)
}

func TestInitAll_Errors(t *testing.T) {
	cfg := newConfig(map[string]any{"plugins.stamps.enabled": true})

	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(&fakePlugin{name: "stamps", initErr: errors.New("boom")}))
	assert.ErrorContains(t, r.InitAll(cfg), "boom")

	r = NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(&fakePlugin{name: "stamps", invalid: errors.New("bad policy")}))
	assert.ErrorContains(t, r.InitAll(cfg), "bad policy")
}

func TestStopAll_ReverseOrder(t *testing.T) {
	var calls []string
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(&fakePlugin{name: "a", calls: &calls}))
	require.NoError(t, r.Register(&fakePlugin{name: "b", calls: &calls}))

	cfg := newConfig(map[string]any{"plugins.a.enabled": true, "plugins.b.enabled": true})
	require.NoError(t, r.InitAll(cfg))
	require.NoError(t, r.StartAll(context.Background()))
	r.StopAll()

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, calls)

	p, ok := r.Get("a")
	require.True(t, ok)
	assert.True(t, p.(*fakePlugin).stopped)
}
