package auth

import (
	"errors"
	"net/http"

	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/pantry/httpnav"
	"github.com/dalemusser/authform/pantry/session"
	"github.com/dalemusser/authform/pantry/toast"
	"github.com/dalemusser/authform/pantry/urlutil"
	"go.uber.org/zap"
)

type loginForm struct {
	Email    string `form:"email" validate:"required,authemail"`
	Password string `form:"password" validate:"required"`
}

var loginFields = []string{"email", "password"}

type loginPage struct {
	page
	Action   string
	Email    forms.Field
	Password forms.Field
}

// ServeLogin renders the sign-in form.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginForm{}, nil)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, in loginForm, errs *forms.Errors) {
	p, err := h.newPage(r, "Sign in", formLogin)
	if err != nil {
		h.logger.Error("login page setup failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	data := loginPage{
		page:     p,
		Action:   loginURL(r.URL.Query().Get("return")),
		Email:    forms.NewField("email", "email", "Email", in.Email, errs),
		Password: forms.NewField("password", forms.TypePassword, "Password", "", errs),
	}
	h.views.RenderAutoMap(w, r, status, "login", nil, data)
}

// HandleLogin checks the posted credentials. Field errors re-render the
// form with 422; every other outcome ends in a 303.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !h.consumeNonce(w, r, formLogin) {
		return
	}

	in := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs, err := h.binder.Validate(in)
	if err != nil {
		h.logger.Error("login validation failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if errs.Any() {
		h.recordInvalid(formLogin, &errs, loginFields)
		h.renderLogin(w, r, http.StatusUnprocessableEntity, in, &errs)
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), in.Email, in.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		h.logger.Info("sign-in rejected", zap.String("remote_ip", r.RemoteAddr))
		h.notify(r, "Invalid email or password.", toast.Error)
		httpnav.RedirectSelf(w, r)
		return
	case err != nil:
		h.logger.Error("authenticate failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	sess := session.FromContext(r.Context())
	sess.Set(keyAccountID, acct.ID)
	sess.Set(keyAccountName, acct.Name)
	sess.Set(keyAccountEmail, acct.Email)
	if err := h.sessions.Regenerate(w, r, sess); err != nil {
		h.logger.Error("session regenerate failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("signed in", zap.String("account_id", acct.ID))
	h.notify(r, "Welcome back, "+acct.Name+".", toast.Success)

	target := urlutil.SafeReturnExcluding(r.URL.Query().Get("return"), "/", nil)
	httpnav.SeeOther(w, r, target, "/")
}

// HandleLogout ends the signed-in session and returns to the sign-in page.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.Clear()
	if err := h.sessions.Regenerate(w, r, sess); err != nil {
		h.logger.Error("session regenerate failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.notify(r, "You have been signed out.", toast.Info)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type homePage struct {
	page
	Email string
}

// ServeHome shows who is signed in, or links to the forms.
func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	p, err := h.newPage(r, "Home", "")
	if err != nil {
		h.logger.Error("home page setup failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	sess := session.FromContext(r.Context())
	h.views.Render(w, http.StatusOK, "home", homePage{page: p, Email: sess.GetString(keyAccountEmail)})
}
