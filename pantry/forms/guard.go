package forms

import (
	"errors"

	"github.com/dalemusser/authform/pantry/session"
	"github.com/oklog/ulid/v2"
)

// NonceField is the hidden input carrying a form's submission nonce.
const NonceField = "submit_nonce"

// maxOutstanding bounds how many rendered-but-unsubmitted copies of one form
// a session may hold (several tabs, back button).
const maxOutstanding = 8

// ErrDuplicateSubmission is returned when a nonce was already used or never
// issued.
var ErrDuplicateSubmission = errors.New("forms: duplicate submission")

// Issue stores a fresh one-time nonce for form in sess and returns it.
// The oldest nonce is dropped once maxOutstanding are pending.
func Issue(sess *session.Session, form string) string {
	nonce := ulid.Make().String()
	if sess == nil {
		return nonce
	}
	pending := sess.GetStrings(nonceKey(form))
	pending = append(pending, nonce)
	if len(pending) > maxOutstanding {
		pending = pending[len(pending)-maxOutstanding:]
	}
	sess.Set(nonceKey(form), pending)
	return nonce
}

// Consume accepts nonce exactly once. A second submission of the same
// rendered form, or a nonce this session never issued, gets
// ErrDuplicateSubmission.
func Consume(sess *session.Session, form, nonce string) error {
	if sess == nil || nonce == "" {
		return ErrDuplicateSubmission
	}
	pending := sess.GetStrings(nonceKey(form))
	for i, p := range pending {
		if p == nonce {
			rest := append(pending[:i:i], pending[i+1:]...)
			sess.Set(nonceKey(form), rest)
			return nil
		}
	}
	return ErrDuplicateSubmission
}

func nonceKey(form string) string {
	return "submit_nonces:" + form
}
