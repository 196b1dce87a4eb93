// Package plugin defines the lifecycle contract for stampd modules and the
// registry that drives it.
package plugin

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/config"
)

// Route represents an HTTP route exposed by a plugin. Path is relative to
// the plugin's mount point and may be empty for the collection root.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Info describes a plugin for the plugins listing endpoint.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Plugin defines the interface that all stampd modules must implement.
type Plugin interface {
	// Name returns the plugin's unique identifier (e.g., "stamps").
	Name() string

	// Version returns the plugin's semantic version.
	Version() string

	// Info returns the plugin's descriptive metadata.
	Info() Info

	// Init initializes the plugin with its configuration subtree and logger.
	Init(cfg config.Config, logger *zap.Logger) error

	// Start begins the plugin's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the plugin.
	Stop() error

	// Routes returns the HTTP routes this plugin exposes.
	Routes() []Route
}
