// templates/funcs.go
package templates

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Funcs returns helpers available to all templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"urlquery": url.QueryEscape,
		"lower":    strings.ToLower,
		"join":     strings.Join,
		"printf":   fmt.Sprintf,

		// {{ .Visibility | toJSON }} for data-* attributes read by the page script.
		"toJSON": func(v any) string {
			b, err := json.Marshal(v)
			if err != nil {
				return "null"
			}
			return string(b)
		},

		// dict builds a map for passing several values to a partial:
		// {{ template "field" dict "Field" .Email "Autocomplete" "email" }}
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
	}
}
