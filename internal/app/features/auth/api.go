package auth

import (
	"net/http"

	"github.com/dalemusser/authform/httputil"
	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/pantry/validate"
)

type emailResult struct {
	Email string `json:"email"`
	Valid bool   `json:"valid"`
}

type phoneResult struct {
	Input     string `json:"input"`
	Formatted string `json:"formatted"`
	Digits    string `json:"digits"`
}

// TogglePassword answers GET /api/password/toggle?type= with the next
// input type and its icon.
func (h *Handler) TogglePassword(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, forms.ToggleVisibility(r.URL.Query().Get("type")))
}

// ValidateEmail answers GET /api/validate/email?email=.
func (h *Handler) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	httputil.WriteJSON(w, http.StatusOK, emailResult{Email: email, Valid: validate.EmailValid(email)})
}

// FormatPhone answers GET /api/format/phone?phone=.
func (h *Handler) FormatPhone(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("phone")
	httputil.WriteJSON(w, http.StatusOK, phoneResult{
		Input:     raw,
		Formatted: validate.FormatPhone(raw),
		Digits:    validate.PhoneDigits(raw),
	})
}
