// Package auth serves the sign-in and registration pages and the small
// JSON and htmx endpoints behind their inputs.
package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/metrics"
	"github.com/dalemusser/authform/pantry/csrf"
	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/pantry/httpnav"
	"github.com/dalemusser/authform/pantry/session"
	"github.com/dalemusser/authform/pantry/toast"
	"github.com/dalemusser/authform/templates"
	"go.uber.org/zap"
)

// Form names used for submission nonces and metric labels.
const (
	formLogin    = "login"
	formRegister = "register"
)

// Session keys for the signed-in account.
const (
	keyAccountID    = "account_id"
	keyAccountName  = "account_name"
	keyAccountEmail = "account_email"
)

// Handler holds the dependencies of the auth pages.
type Handler struct {
	sessions      *session.Manager
	accounts      accounts.Store
	binder        *forms.Binder
	views         *templates.Engine
	logger        *zap.Logger
	toastDuration time.Duration
}

// Deps are the collaborators NewHandler needs.
type Deps struct {
	Sessions      *session.Manager
	Accounts      accounts.Store
	Views         *templates.Engine
	Logger        *zap.Logger
	ToastDuration time.Duration
}

// NewHandler builds a Handler. A zero ToastDuration uses toast.DefaultDuration.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.ToastDuration <= 0 {
		d.ToastDuration = toast.DefaultDuration
	}
	return &Handler{
		sessions:      d.Sessions,
		accounts:      d.Accounts,
		binder:        forms.NewBinder(),
		views:         d.Views,
		logger:        logger,
		toastDuration: d.ToastDuration,
	}
}

// page is the data every full page renders from.
type page struct {
	Title     string
	CSRFToken string
	Nonce     string
	Toast     *toast.Toast
	User      string
}

// newPage collects the CSRF token, the pending toast and, when form is not
// empty, a fresh submission nonce.
func (h *Handler) newPage(r *http.Request, title, form string) (page, error) {
	sess := session.FromContext(r.Context())
	tok, err := csrf.Ensure(sess)
	if err != nil {
		return page{}, err
	}
	p := page{Title: title, CSRFToken: tok, User: sess.GetString(keyAccountName)}
	if t, ok := toast.Take(sess); ok {
		p.Toast = &t
	}
	if form != "" {
		p.Nonce = forms.Issue(sess, form)
	}
	return p, nil
}

func (h *Handler) notify(r *http.Request, msg string, kind toast.Kind) {
	toast.Show(session.FromContext(r.Context()), msg, kind, h.toastDuration)
}

// consumeNonce reports whether this POST is the first submission of the
// rendered form. Replays get an info toast and a redirect to the form.
func (h *Handler) consumeNonce(w http.ResponseWriter, r *http.Request, form string) bool {
	sess := session.FromContext(r.Context())
	if err := forms.Consume(sess, form, r.PostFormValue(forms.NonceField)); err != nil {
		metrics.DuplicateSubmission(form)
		h.logger.Info("duplicate submission ignored", zap.String("form", form), zap.Error(err))
		h.notify(r, "This form was already submitted.", toast.Info)
		httpnav.RedirectSelf(w, r)
		return false
	}
	return true
}

// recordInvalid counts and logs the fields that failed validation. Errors
// on fields the page has no slot for are logged at debug.
func (h *Handler) recordInvalid(form string, errs *forms.Errors, rendered []string) {
	for _, f := range errs.Fields() {
		metrics.ValidationFailed(form, f)
	}
	if missing := errs.Unrendered(rendered); len(missing) > 0 {
		h.logger.Debug("field errors without a rendered target",
			zap.String("form", form), zap.Strings("fields", missing))
	}
}

// tooManyAttempts answers a rate-limited POST.
func (h *Handler) tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path), zap.String("remote_ip", r.RemoteAddr))
	h.notify(r, "Too many attempts. Please wait a minute and try again.", toast.Error)
	httpnav.RedirectSelf(w, r)
}

// loginURL is /login, carrying ret as ?return= when set.
func loginURL(ret string) string {
	if ret == "" {
		return "/login"
	}
	return "/login?" + url.Values{"return": {ret}}.Encode()
}
