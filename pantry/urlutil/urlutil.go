// pantry/urlutil/urlutil.go
package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludedPaths are never useful as a post-sign-in destination:
// returning to them would show the form again or sign the user straight out.
var DefaultExcludedPaths = []string{"/login", "/logout", "/register"}

// SafeReturn validates a same-origin redirect target and returns it
// normalized, or fallback if it is unsafe.
//
// A safe target is an absolute path (no scheme, no host, not
// scheme-relative "//host") without CR, LF or backslashes. This closes open
// redirects through ?return= and header injection through Location.
//
//	ret := r.FormValue("return")
//	http.Redirect(w, r, urlutil.SafeReturn(ret, "/"), http.StatusSeeOther)
func SafeReturn(ret, fallback string) string {
	ret = strings.TrimSpace(ret)
	if ret == "" {
		return fallback
	}
	if strings.ContainsAny(ret, "\r\n\\") {
		return fallback
	}
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") {
		return fallback
	}

	u, err := url.Parse(ret)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return fallback
	}

	clean := path.Clean(u.Path)
	if !strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "//") {
		return fallback
	}
	if u.RawQuery != "" {
		clean += "?" + u.RawQuery
	}
	return clean
}

// SafeReturnExcluding is SafeReturn that also falls back when the target's
// path equals one of excluded. A nil excluded uses DefaultExcludedPaths.
func SafeReturnExcluding(ret, fallback string, excluded []string) string {
	out := SafeReturn(ret, fallback)
	if out == fallback {
		return fallback
	}
	if excluded == nil {
		excluded = DefaultExcludedPaths
	}
	p := out
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	for _, ex := range excluded {
		if p == ex {
			return fallback
		}
	}
	return out
}
