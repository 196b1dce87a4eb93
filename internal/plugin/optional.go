package plugin

import "context"

// HealthStatus is reported by plugins that implement HealthChecker.
type HealthStatus struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Message string `json:"message,omitempty"`
}

// HealthChecker is implemented by plugins that report their health status.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// Validator is implemented by plugins that validate their config post-init.
type Validator interface {
	ValidateConfig() error
}
