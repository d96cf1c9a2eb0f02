package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dalemusser/authform/pantry/validate"
	"github.com/go-playground/validator/v10"
)

// Binder validates form structs tagged with `form:"<field id>"` and
// `validate:"..."`, and turns failures into per-field messages.
//
// Beyond the validator/v10 built-ins it knows two rules:
//
//	authemail   validate.EmailValid
//	localphone  10 digits after validate.PhoneDigits
//	bcryptlen   at most MaxPasswordBytes bytes (max= counts runes)
type Binder struct {
	v        *validator.Validate
	messages map[string]string
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// defaultMessages maps a rule tag to its message. %s is the rule parameter.
var defaultMessages = map[string]string{
	"required":   "This field is required.",
	"authemail":  "Please enter a valid email address.",
	"localphone": "Please enter a 10-digit phone number.",
	"min":        "Must be at least %s characters.",
	"max":        "Must be at most %s characters.",
	"eqfield":    "Passwords do not match.",
	"bcryptlen":  "Must be at most 72 bytes.",
}

// NewBinder returns a Binder with the auth rules registered.
func NewBinder() *Binder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("authemail", func(fl validator.FieldLevel) bool {
		return validate.EmailValid(fl.Field().String())
	})
	_ = v.RegisterValidation("localphone", func(fl validator.FieldLevel) bool {
		return len(validate.PhoneDigits(fl.Field().String())) == validate.LocalPhoneLen
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})

	msgs := make(map[string]string, len(defaultMessages))
	for k, m := range defaultMessages {
		msgs[k] = m
	}
	return &Binder{v: v, messages: msgs}
}

// SetMessage overrides the message for a rule tag.
func (b *Binder) SetMessage(tag, msg string) {
	b.messages[tag] = msg
}

// Validate checks s and returns its field errors. Only the first failing
// rule per field is reported. A non-validation error (s is not a struct)
// is returned as err.
func (b *Binder) Validate(s any) (Errors, error) {
	var errs Errors
	err := b.v.Struct(s)
	if err == nil {
		return errs, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs, err
	}
	for _, fe := range ve {
		field := fe.Field()
		if errs.Has(field) {
			continue
		}
		errs.Set(field, b.message(fe))
	}
	return errs, nil
}

func (b *Binder) message(fe validator.FieldError) string {
	msg, ok := b.messages[fe.Tag()]
	if !ok {
		return "This value is not valid."
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
