package internal

import (
	"log/slog"

	"github.com/starford/holocron/internal/patchstore"
	"github.com/starford/holocron/internal/swapi"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	source  swapi.Source
	backend patchstore.Backend
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default JSON logger on stdout. Commands that own
// stdout, like the MCP stdio server, log to stderr through this.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithSource replaces the remote SWAPI client.
func WithSource(src swapi.Source) Option {
	return func(a *application) {
		a.source = src
	}
}

// WithBackend replaces the patch store backend selected by Store.Driver.
func WithBackend(b patchstore.Backend) Option {
	return func(a *application) {
		a.backend = b
	}
}
