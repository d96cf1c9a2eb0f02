package bootstrap

import (
	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/middleware"
	"github.com/dalemusser/authform/pantry/health"
	"github.com/dalemusser/authform/pantry/session"
)

// Deps are the backends opened by Connect.
type Deps struct {
	Sessions *session.Manager
	Accounts accounts.Store
	// Limiter is nil when form rate limiting is disabled.
	Limiter *middleware.RateLimiter
	// Checks back /readyz.
	Checks map[string]health.Check
}
