// templates/render.go
package templates

import (
	"net/http"

	"go.uber.org/zap"
)

// Render writes the full page name with the given status.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) {
	e.write(w, status, name, name, data)
}

// RenderSnippet writes a partial by name, e.g. the phone input swapped in
// by htmx.
func (e *Engine) RenderSnippet(w http.ResponseWriter, status int, name string, data any) {
	e.write(w, status, name, name, data)
}

// RenderAutoMap answers htmx requests with the snippet mapped to HX-Target,
// or with the page's "content" block when the target is "content". Every
// other request gets the full page.
func (e *Engine) RenderAutoMap(w http.ResponseWriter, r *http.Request, status int, page string, targets map[string]string, data any) {
	if r.Header.Get("HX-Request") == "true" {
		target := r.Header.Get("HX-Target")
		if snip, ok := targets[target]; ok && snip != "" {
			e.write(w, status, snip, snip, data)
			return
		}
		if target == "content" {
			e.write(w, status, page, "content", data)
			return
		}
	}
	e.write(w, status, page, page, data)
}

func (e *Engine) write(w http.ResponseWriter, status int, entry, name string, data any) {
	body, err := e.Execute(entry, name, data)
	if err != nil {
		e.logger.Error("template render failed",
			zap.String("entry", entry), zap.String("name", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
