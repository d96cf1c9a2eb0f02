package auth

import (
	"embed"

	"github.com/dalemusser/authform/templates"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// TemplateSet returns the auth pages for templates.Engine.Boot.
func TemplateSet() templates.Set {
	return templates.Set{
		Name:     "auth",
		FS:       templateFS,
		Patterns: []string{"templates/*.gohtml"},
	}
}
