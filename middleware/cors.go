// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/authform/config"
	"github.com/go-chi/cors"
)

// CORSFromConfig returns go-chi/cors configured from coreCfg.CORS, or an
// identity middleware when CORS is disabled. The auth feature mounts it on
// the /api group only; the HTML forms stay same-origin.
func CORSFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.CORS.EnableCORS {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	methods := coreCfg.CORS.CORSAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   coreCfg.CORS.CORSAllowedOrigins,
		AllowedMethods:   methods,
		AllowedHeaders:   coreCfg.CORS.CORSAllowedHeaders,
		ExposedHeaders:   coreCfg.CORS.CORSExposedHeaders,
		AllowCredentials: coreCfg.CORS.CORSAllowCredentials,
		MaxAge:           coreCfg.CORS.CORSMaxAge,
	})
}
