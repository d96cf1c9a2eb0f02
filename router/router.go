// router/router.go
package router

import (
	"net/http"

	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/logging"
	"github.com/dalemusser/authform/metrics"
	"github.com/dalemusser/authform/middleware"
	"github.com/dalemusser/authform/pantry/version"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New returns a chi router with the standard stack: request ID, real IP,
// panic recovery, security headers, body size limit, metrics, access log
// and JSON 404/405 handlers. Routes, sessions and CORS are mounted by the
// caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}

// MountOps adds the liveness probe, build info and the Prometheus endpoint.
func MountOps(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/version", version.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}
