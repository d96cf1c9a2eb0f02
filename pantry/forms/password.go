package forms

import "html/template"

// Input types a password field moves between.
const (
	TypePassword = "password"
	TypeText     = "text"
)

// Icons shown on the visibility toggle. EyeIcon invites revealing a hidden
// password; EyeOffIcon invites hiding a visible one.
const (
	EyeIcon    template.HTML = `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M1 12s4-8 11-8 11 8 11 8-4 8-11 8-11-8-11-8z"/><circle cx="12" cy="12" r="3"/></svg>`
	EyeOffIcon template.HTML = `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M17.94 17.94A10.07 10.07 0 0 1 12 20c-7 0-11-8-11-8a18.45 18.45 0 0 1 5.06-5.94M9.9 4.24A9.12 9.12 0 0 1 12 4c7 0 11 8 11 8a18.5 18.5 0 0 1-2.16 3.19m-6.72-1.07a3 3 0 1 1-4.24-4.24"/><line x1="1" y1="1" x2="23" y2="23"/></svg>`
)

// Visibility is the rendered state of a password input.
type Visibility struct {
	Type string        `json:"type"`
	Icon template.HTML `json:"icon"`
}

// VisibilityFor returns the icon matching an input currently of type typ.
// Anything other than "text" is treated as obscured.
func VisibilityFor(typ string) Visibility {
	if typ == TypeText {
		return Visibility{Type: TypeText, Icon: EyeOffIcon}
	}
	return Visibility{Type: TypePassword, Icon: EyeIcon}
}

// ToggleVisibility flips an input between obscured and plain text and
// returns the new type with its icon.
func ToggleVisibility(current string) Visibility {
	if current == TypeText {
		return VisibilityFor(TypePassword)
	}
	return VisibilityFor(TypeText)
}
