// Package health serves a JSON readiness probe built from named checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/authform/httputil"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each check when the handler is built with zero.
const DefaultTimeout = 2 * time.Second

// Check probes one backend and returns nil when it is usable.
type Check func(ctx context.Context) error

// Response is the probe's JSON body.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs every check under timeout on each request. Any failure
// answers 503 with status "error"; otherwise 200 with status "ok". With no
// checks it is a plain liveness probe.
func Handler(checks map[string]Check, timeout time.Duration, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(names) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
			return
		}

		resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := run(r.Context(), checks[name], timeout); err != nil {
				logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = "error: " + err.Error()
				resp.Status = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	})
}

func run(ctx context.Context, check Check, timeout time.Duration) error {
	if check == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check(ctx)
}
