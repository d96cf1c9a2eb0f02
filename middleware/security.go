// middleware/security.go
package middleware

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/authform/config"
)

// DefaultContentSecurityPolicy allows the page's own script and styles plus
// the htmx bundle used for live phone formatting.
const DefaultContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://unpkg.com; " +
	"style-src 'self'; img-src 'self' data:; " +
	"form-action 'self'; frame-ancestors 'none'; base-uri 'self'"

// SecurityHeadersOptions selects the headers written on every response.
// An empty string disables the corresponding header.
type SecurityHeadersOptions struct {
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	ContentSecurityPolicy string
	PermissionsPolicy     string

	// HSTSMaxAge is sent only on TLS requests. 0 disables HSTS.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
}

// DefaultSecurityHeadersOptions returns the policy used for the auth pages.
func DefaultSecurityHeadersOptions() SecurityHeadersOptions {
	return SecurityHeadersOptions{
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: DefaultContentSecurityPolicy,
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=()",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubDomains: true,
	}
}

// SecurityHeaders sets the configured headers before calling next.
func SecurityHeaders(opts SecurityHeadersOptions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			setIf(h, "X-Frame-Options", opts.XFrameOptions)
			setIf(h, "X-Content-Type-Options", opts.XContentTypeOptions)
			setIf(h, "Referrer-Policy", opts.ReferrerPolicy)
			setIf(h, "Content-Security-Policy", opts.ContentSecurityPolicy)
			setIf(h, "Permissions-Policy", opts.PermissionsPolicy)

			if opts.HSTSMaxAge > 0 && r.TLS != nil {
				hsts := "max-age=" + strconv.Itoa(opts.HSTSMaxAge)
				if opts.HSTSIncludeSubDomains {
					hsts += "; includeSubDomains"
				}
				h.Set("Strict-Transport-Security", hsts)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// SecurityHeadersFromConfig applies the defaults overridden by the
// frame_options, content_security_policy and hsts_max_age settings.
func SecurityHeadersFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	opts := DefaultSecurityHeadersOptions()
	if coreCfg != nil {
		if coreCfg.Security.FrameOptions != "" {
			opts.XFrameOptions = coreCfg.Security.FrameOptions
		}
		if coreCfg.Security.ContentSecurityPolicy != "" {
			opts.ContentSecurityPolicy = coreCfg.Security.ContentSecurityPolicy
		}
		opts.HSTSMaxAge = coreCfg.Security.HSTSMaxAge
	}
	return SecurityHeaders(opts)
}
