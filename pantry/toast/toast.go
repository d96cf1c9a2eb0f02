// Package toast carries one transient notification from the request that
// raises it to the next page that renders it.
//
// A toast lives in the session under a single flash slot, so it survives the
// redirect of a Post/Redirect/Get cycle. There is exactly one slot: showing a
// second toast before the first has been rendered replaces it.
package toast

import (
	"encoding/json"
	"time"

	"github.com/dalemusser/authform/pantry/session"
)

// Kind selects the toast's styling.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 3 * time.Second

const flashKey = "toast"

// Toast is a message ready to render.
type Toast struct {
	Message  string        `json:"message"`
	Kind     Kind          `json:"kind"`
	Duration time.Duration `json:"duration"`
}

// Class returns the CSS classes for a visible toast of this kind.
func (t Toast) Class() string {
	return "toast show " + string(t.Kind)
}

// DurationMillis returns the auto-hide delay for the data-duration attribute.
func (t Toast) DurationMillis() int64 {
	return t.Duration.Milliseconds()
}

// Show stores a toast in the session, replacing any toast not yet rendered.
// A nil session is ignored.
func Show(sess *session.Session, message string, kind Kind, d time.Duration) {
	if sess == nil || message == "" {
		return
	}
	if kind == "" {
		kind = Info
	}
	if d <= 0 {
		d = DefaultDuration
	}
	b, err := json.Marshal(Toast{Message: message, Kind: kind, Duration: d})
	if err != nil {
		return
	}
	// Stored as a string so it round-trips through JSON-backed stores.
	session.Flash(sess, flashKey, string(b))
}

// Take removes and returns the pending toast, if any.
func Take(sess *session.Session) (Toast, bool) {
	if sess == nil {
		return Toast{}, false
	}
	raw := session.GetFlashString(sess, flashKey)
	if raw == "" {
		return Toast{}, false
	}
	var t Toast
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.Message == "" {
		return Toast{}, false
	}
	return t, true
}
