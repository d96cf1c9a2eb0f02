package auth

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/dalemusser/authform/internal/app/store/accounts"
	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/pantry/toast"
	"github.com/dalemusser/authform/pantry/validate"
	"go.uber.org/zap"
)

type registerForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,authemail"`
	Phone    string `form:"phone" validate:"required,localphone"`
	Password string `form:"password" validate:"required,min=8,bcryptlen"`
	Confirm  string `form:"confirm" validate:"required,eqfield=Password"`
}

var registerFields = []string{"name", "email", "phone", "password", "confirm"}

type registerPage struct {
	page
	Name     forms.Field
	Email    forms.Field
	Phone    forms.Field
	Password forms.Field
	Confirm  forms.Field
}

// ServeRegister renders the registration form.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, registerForm{}, nil)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, status int, in registerForm, errs *forms.Errors) {
	p, err := h.newPage(r, "Create account", formRegister)
	if err != nil {
		h.logger.Error("register page setup failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	data := registerPage{
		page:     p,
		Name:     forms.NewField("name", "text", "Full name", in.Name, errs),
		Email:    forms.NewField("email", "email", "Email", in.Email, errs),
		Phone:    forms.NewField("phone", "tel", "Phone", validate.FormatPhone(in.Phone), errs),
		Password: forms.NewField("password", forms.TypePassword, "Password", "", errs),
		Confirm:  forms.NewField("confirm", forms.TypePassword, "Confirm password", "", errs),
	}
	h.views.RenderAutoMap(w, r, status, "register", nil, data)
}

// HandleRegister creates an account. Field errors, including an email
// that is already registered, re-render the form with 422; success sends
// the user to the sign-in page.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !h.consumeNonce(w, r, formRegister) {
		return
	}

	in := registerForm{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Phone:    r.PostFormValue("phone"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
	}
	errs, err := h.binder.Validate(in)
	if err != nil {
		h.logger.Error("register validation failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if errs.Any() {
		h.recordInvalid(formRegister, &errs, registerFields)
		h.renderRegister(w, r, http.StatusUnprocessableEntity, in, &errs)
		return
	}

	acct, err := h.accounts.Register(r.Context(), accounts.NewAccount{
		Name:     in.Name,
		Email:    validate.NormalizeEmail(in.Email),
		Phone:    validate.PhoneDigits(in.Phone),
		Password: in.Password,
	})
	switch {
	case errors.Is(err, accounts.ErrExists):
		errs.Set("email", "An account with this email already exists.")
		h.recordInvalid(formRegister, &errs, registerFields)
		h.renderRegister(w, r, http.StatusUnprocessableEntity, in, &errs)
		return
	case err != nil:
		h.logger.Error("register failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("account registered", zap.String("account_id", acct.ID))
	h.notify(r, "Account created. Please sign in.", toast.Success)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

var fieldIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// HandlePhoneFormat is the htmx endpoint behind live phone formatting. It
// reads the input's id from "id" and its value from the field of that name,
// and answers with the re-rendered input.
func (h *Handler) HandlePhoneFormat(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("id")
	if id == "" {
		id = "phone"
	}
	if !fieldIDPattern.MatchString(id) {
		http.Error(w, "invalid field id", http.StatusBadRequest)
		return
	}
	field := forms.Field{
		ID:    id,
		Name:  id,
		Type:  "tel",
		Label: "Phone",
		Value: validate.FormatPhone(r.PostFormValue(id)),
	}
	h.views.RenderSnippet(w, http.StatusOK, "phone_input", field)
}
