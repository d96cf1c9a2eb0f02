// pantry/httpnav/httpnav.go
package httpnav

import (
	"net/http"

	"github.com/dalemusser/authform/pantry/urlutil"
)

// CurrentPath returns the request path with its query string.
func CurrentPath(r *http.Request) string {
	p := r.URL.Path
	if q := r.URL.RawQuery; q != "" {
		p += "?" + q
	}
	return p
}

// SeeOther finishes a POST with 303 See Other to a local path. Targets that
// are not safe local paths fall back to fallback.
//
// The browser follows with a GET, so the POST never sits in history and a
// reload does not offer to resubmit the form.
func SeeOther(w http.ResponseWriter, r *http.Request, target, fallback string) {
	http.Redirect(w, r, urlutil.SafeReturn(target, fallback), http.StatusSeeOther)
}

// RedirectSelf replaces the current history entry with a GET of the same URL.
func RedirectSelf(w http.ResponseWriter, r *http.Request) {
	SeeOther(w, r, CurrentPath(r), "/")
}
