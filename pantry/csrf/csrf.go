// Package csrf issues a per-session anti-forgery token and checks it on
// state-changing requests.
//
// Pages expose the token twice: as a hidden form field named FieldName and
// as <meta name="csrf-token" content="..."> so scripts can echo it back in
// the HeaderName header.
package csrf

import (
	"errors"
	"net/http"

	"github.com/dalemusser/authform/pantry/crypto"
	"github.com/dalemusser/authform/pantry/session"
	"go.uber.org/zap"
)

const (
	// FieldName is the hidden form field carrying the token.
	FieldName = "csrf_token"
	// HeaderName is the request header carrying the token.
	HeaderName = "X-CSRF-Token"
	// MetaName is the name attribute of the meta tag carrying the token.
	MetaName = "csrf-token"

	sessionKey = "csrf_token"
)

var (
	ErrNoSession     = errors.New("csrf: no session")
	ErrTokenMissing  = errors.New("csrf: token missing")
	ErrTokenMismatch = errors.New("csrf: token mismatch")
)

// Ensure returns the session's token, generating and storing one on first use.
func Ensure(sess *session.Session) (string, error) {
	if sess == nil {
		return "", ErrNoSession
	}
	if tok := sess.GetString(sessionKey); tok != "" {
		return tok, nil
	}
	tok, err := crypto.GenerateToken()
	if err != nil {
		return "", err
	}
	sess.Set(sessionKey, tok)
	return tok, nil
}

// Verify checks the token submitted with r against the session's token.
// The header wins over the form field when both are present.
func Verify(r *http.Request) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrNoSession
	}
	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.PostFormValue(FieldName)
	}
	if submitted == "" {
		return ErrTokenMissing
	}
	if !crypto.TokensEqual(submitted, sess.GetString(sessionKey)) {
		return ErrTokenMismatch
	}
	return nil
}

// Options configures Middleware.
type Options struct {
	// Logger receives one Info line per rejected request.
	Logger *zap.Logger
	// OnFailure, if set, runs for every rejected request (e.g. a metric).
	OnFailure func(r *http.Request, err error)
}

// Middleware rejects unsafe requests (anything but GET, HEAD, OPTIONS and
// TRACE) whose token does not match the session's with 403 Forbidden. It must
// run inside session.Middleware.
func Middleware(opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if err := Verify(r); err != nil {
				logger.Info("csrf check failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_ip", r.RemoteAddr),
					zap.Error(err),
				)
				if opts.OnFailure != nil {
					opts.OnFailure(r, err)
				}
				http.Error(w, "invalid or missing CSRF token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
