// Package resources embeds the shared page layout and static assets.
package resources

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/dalemusser/authform/pantry/forms"
	"github.com/dalemusser/authform/templates"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// SharedSet is the layout and partials every page uses.
func SharedSet() templates.Set {
	return templates.Set{
		Name:     templates.SharedSet,
		FS:       templateFS,
		Patterns: []string{"templates/*.gohtml"},
	}
}

// Funcs are the template helpers the shared partials call.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"visibility": forms.VisibilityFor,
	}
}

// StaticHandler serves the embedded assets; mount it under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("resources: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
