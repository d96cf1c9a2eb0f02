package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/authform/app"
	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/httputil"
	"github.com/dalemusser/authform/internal/app/features/auth"
	"github.com/dalemusser/authform/internal/app/resources"
	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/middleware"
	"github.com/dalemusser/authform/pantry/health"
	"github.com/dalemusser/authform/pantry/session"
	"github.com/dalemusser/authform/router"
	"github.com/dalemusser/authform/templates"
	"go.uber.org/zap"
)

// Connect opens the session and account stores and the form rate limiter.
func Connect(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (Deps, error) {
	var (
		store  session.Store
		accts  accounts.Store
		checks = map[string]health.Check{}
	)
	switch appCfg.SessionStore {
	case StoreRedis:
		rs, err := session.ConnectRedis(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
		if err != nil {
			return Deps{}, err
		}
		store = rs
		accts = accounts.NewRedisStore(rs.Client(), accounts.DefaultRedisPrefix, appCfg.BcryptCost)
		checks["redis"] = func(ctx context.Context) error {
			return rs.Client().Ping(ctx).Err()
		}
		logger.Info("using redis stores",
			zap.String("addr", appCfg.RedisAddr), zap.Int("db", appCfg.RedisDB))
	default:
		store = session.NewMemoryStore(time.Minute)
		accts = accounts.NewMemoryStore(appCfg.BcryptCost)
		logger.Info("using in-memory stores; accounts and sessions are lost on restart")
	}

	sessCfg := session.DefaultConfig()
	sessCfg.MaxAge = appCfg.SessionMaxAge
	sessCfg.Secure = appCfg.CookieSecure

	deps := Deps{
		Sessions: session.NewManager(store, sessCfg),
		Accounts: accts,
		Checks:   checks,
	}
	if appCfg.LoginRatePerMinute > 0 {
		deps.Limiter = middleware.NewRateLimiter(middleware.PerMinute(appCfg.LoginRatePerMinute), appCfg.LoginBurst)
	}
	return deps, nil
}

// BuildHandler assembles the router, templates and feature routes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps Deps, logger *zap.Logger) (http.Handler, error) {
	httputil.SetJSONLogger(logger)

	views := templates.New(logger, resources.Funcs())
	if err := views.Boot(resources.SharedSet(), auth.TemplateSet()); err != nil {
		return nil, fmt.Errorf("boot templates: %w", err)
	}

	r := router.New(coreCfg, logger)
	router.MountOps(r)
	r.Method(http.MethodGet, "/readyz", health.Handler(deps.Checks, 0, logger))
	r.Handle("/static/*", resources.StaticHandler())

	h := auth.NewHandler(auth.Deps{
		Sessions:      deps.Sessions,
		Accounts:      deps.Accounts,
		Views:         views,
		Logger:        logger,
		ToastDuration: appCfg.ToastDuration,
	})
	auth.Mount(r, h, coreCfg, deps.Limiter)
	return r, nil
}

// Close stops the limiter and closes the stores. The account store shares
// the session store's redis client, so the session store closes it.
func Close(deps Deps, logger *zap.Logger) error {
	if deps.Limiter != nil {
		deps.Limiter.Close()
	}
	var errs []error
	if deps.Accounts != nil {
		if err := deps.Accounts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close accounts: %w", err))
		}
	}
	if deps.Sessions != nil {
		if err := deps.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	logger.Debug("backends closed")
	return errors.Join(errs...)
}

// Hooks wires the service into app.Run.
var Hooks = app.Hooks[AppConfig, Deps]{
	Name:         "authform",
	LoadConfig:   LoadConfig,
	Connect:      Connect,
	BuildHandler: BuildHandler,
	Close:        Close,
}
