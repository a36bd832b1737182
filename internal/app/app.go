package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/vk/dosgrid/internal/assembly"
	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/hcl_adapter"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/registry"
	"github.com/vk/dosgrid/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	registry   *registry.Registry
	loaders    []config.Loader
	httpServer *http.Server
	// network is the network being run, for the status endpoint.
	network atomic.Pointer[network.Network]
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Values, descriptions and reports go to outW, logs to logW. Without modules,
// every core module is registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		registry: reg,
		loaders:  []config.Loader{hcl_adapter.NewLoader(), yaml_adapter.NewLoader()},
	}
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Load reads the network description with every loader whose extensions
// appear under the configured path and merges the results.
func (a *App) Load(ctx context.Context) (*config.Model, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	path := a.config.NetworkPath
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("network path: %w", err)
	}

	model := config.New()
	for _, l := range a.loaders {
		part, err := l.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, err
		}
	}
	if len(model.Actors) == 0 {
		return nil, fmt.Errorf("no actors declared in %s", path)
	}
	a.logger.Debug("Configuration loaded and translated into unified model.", "actors", len(model.Actors), "links", len(model.Links))
	return model, nil
}

// Build loads the description and wires it into a network ready to run.
func (a *App) Build(ctx context.Context) (*network.Network, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	model, err := a.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load network description: %w", err)
	}
	env := registry.Env{Out: a.outW, TelemetryPath: a.config.TelemetryPath}
	b, err := assembly.Assemble(ctx, model, a.registry, env)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble network: %w", err)
	}
	n, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Validate builds the network without running it and writes its
// description to the output.
func (a *App) Validate(ctx context.Context) error {
	n, err := a.Build(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Network is valid.", "actors", len(n.Actors()))
	return n.Describe(a.outW)
}

// Run builds the network, runs it to completion and writes the report to the
// output. The health check server, when enabled, lives for the duration of
// the run.
func (a *App) Run(ctx context.Context) (*network.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	n, err := a.Build(ctx)
	if err != nil {
		return nil, err
	}
	a.network.Store(n)

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer func() {
			if err := a.closeHealthCheckServer(); err != nil {
				a.logger.Warn("Health check server did not close cleanly.", "error", err)
			}
		}()
	}

	a.logger.Info("🚀 Starting network run...", "actors", len(n.Actors()))
	report, runErr := n.Run(ctx)
	if report != nil {
		if err := report.Write(a.outW); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return report, fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.")
	return report, nil
}
