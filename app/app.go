// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/logging"
	"github.com/dalemusser/authform/metrics"
	"github.com/dalemusser/authform/pantry/version"
	"github.com/dalemusser/authform/server"
	"go.uber.org/zap"
)

// Hooks are the points where a service plugs into Run.
// C is the service config, D the bundle of connected backends.
type Hooks[C any, D any] struct {
	// Name is used for logging only.
	Name string

	// LoadConfig returns the core config and the service config.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// Connect opens session stores and other backends. It runs under
	// core.BackendConnectTimeout.
	Connect func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// BuildHandler assembles the router, middleware and routes.
	BuildHandler func(core *config.CoreConfig, appCfg C, deps D, logger *zap.Logger) (http.Handler, error)

	// Close releases what Connect opened. It may be nil.
	Close func(deps D, logger *zap.Logger) error
}

// Run is the startup sequence: bootstrap logger, config, final logger,
// metrics, backends, handler, then serve until ctx ends or a signal
// arrives. Backends are closed on the way out.
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()

	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.MustBuildLogger(coreCfg.LogLevel, coreCfg.Env)
	defer logger.Sync()
	logger.Info("starting",
		zap.String("app", hooks.Name),
		zap.String("version", version.String()),
		zap.String("env", coreCfg.Env),
		zap.String("log_level", coreCfg.LogLevel),
	)
	logger.Debug("core config", zap.String("config", coreCfg.Dump()))

	metrics.RegisterDefault(logger)

	connectCtx, cancelConnect := context.WithTimeout(ctx, coreCfg.BackendConnectTimeout)
	deps, err := hooks.Connect(connectCtx, coreCfg, appCfg, logger)
	cancelConnect()
	if err != nil {
		logger.Error("backend connect failed", zap.Error(err))
		return fmt.Errorf("connect: %w", err)
	}
	if hooks.Close != nil {
		defer func() {
			if err := hooks.Close(deps, logger); err != nil {
				logger.Warn("backend close failed", zap.Error(err))
			}
		}()
	}

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	handler, err := hooks.BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
