package auth

import (
	"net/http"

	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/metrics"
	"github.com/dalemusser/authform/middleware"
	"github.com/dalemusser/authform/pantry/csrf"
	"github.com/dalemusser/authform/pantry/session"
	"github.com/go-chi/chi/v5"
)

// Mount registers the auth pages on r. Page routes run inside the session
// and CSRF middleware; POSTs to /login and /register also pass through
// limiter when it is not nil. The /api routes are stateless GETs.
func Mount(r chi.Router, h *Handler, coreCfg *config.CoreConfig, limiter *middleware.RateLimiter) {
	r.Group(func(pr chi.Router) {
		pr.Use(session.Middleware(h.sessions, h.logger))
		pr.Use(csrf.Middleware(csrf.Options{
			Logger:    h.logger,
			OnFailure: func(*http.Request, error) { metrics.CSRFFailure() },
		}))

		pr.Get("/", h.ServeHome)
		pr.Get("/login", h.ServeLogin)
		pr.Get("/register", h.ServeRegister)
		pr.Post("/logout", h.HandleLogout)
		pr.Post("/auth/phone/format", h.HandlePhoneFormat)

		pr.Group(func(fr chi.Router) {
			if limiter != nil {
				if limiter.OnLimited == nil {
					limiter.OnLimited = h.tooManyAttempts
				}
				fr.Use(limiter.Limit)
			}
			fr.Post("/login", h.HandleLogin)
			fr.Post("/register", h.HandleRegister)
		})
	})

	r.Route("/api", func(ar chi.Router) {
		ar.Use(middleware.CORSFromConfig(coreCfg))
		ar.Get("/password/toggle", h.TogglePassword)
		ar.Get("/validate/email", h.ValidateEmail)
		ar.Get("/format/phone", h.FormatPhone)
	})
}
