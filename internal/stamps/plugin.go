package stamps

import (
	"context"

	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/config"
	"github.com/HerbHall/stampd/internal/plugin"
	"github.com/HerbHall/stampd/internal/resource"
	"github.com/HerbHall/stampd/internal/store"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Plugin)(nil)
	_ plugin.HealthChecker = (*Plugin)(nil)
)

// Plugin mounts the read-only stamps API at /api/v1/stamps.
type Plugin struct {
	store   *store.Store
	logger  *zap.Logger
	repo    *Repository
	service *resource.Service
	handler *resource.Handler
}

// New creates the stamps plugin over st.
func New(st *store.Store) *Plugin {
	return &Plugin{store: st}
}

func (p *Plugin) Name() string    { return Kind }
func (p *Plugin) Version() string { return "1.0.0" }

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        Kind,
		Version:     p.Version(),
		Description: "Timestamp proof requests: lookup by id and filtered listing",
	}
}

// Init migrates the stamps table and wires repository, service and handler.
// cfg is the plugins.stamps subtree.
func (p *Plugin) Init(cfg config.Config, logger *zap.Logger) error {
	p.logger = logger

	policy, err := resource.ParseStatusPolicy(cfg.GetString("status_policy"))
	if err != nil {
		return err
	}

	repo, err := NewRepository(context.Background(), p.store)
	if err != nil {
		return err
	}

	p.repo = repo
	p.service = resource.NewService(repo, resource.WithPresenter(Present))
	p.handler = resource.NewHandler(p.service, policy, logger)

	p.logger.Info("stamps module initialized",
		zap.Stringer("dialect", p.store.Dialect()),
		zap.Stringer("status_policy", policy),
	)
	return nil
}

func (p *Plugin) Start(_ context.Context) error {
	p.logger.Info("stamps module started")
	return nil
}

func (p *Plugin) Stop() error {
	p.logger.Info("stamps module stopped")
	return nil
}

func (p *Plugin) Routes() []plugin.Route {
	if p.handler == nil {
		return nil
	}
	return p.handler.Routes()
}

// Health pings the database.
func (p *Plugin) Health(ctx context.Context) plugin.HealthStatus {
	if err := p.store.DB().PingContext(ctx); err != nil {
		p.logger.Warn("stamps health check failed", zap.Error(err))
		return plugin.HealthStatus{Status: "degraded", Message: "database unreachable"}
	}
	return plugin.HealthStatus{Status: "ok"}
}

// Repository returns the repository wired by Init, or nil before Init.
func (p *Plugin) Repository() *Repository {
	return p.repo
}
