package templates

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
)

func bootTestEngine(t *testing.T) *Engine {
	t.Helper()
	shared := fstest.MapFS{
		"layout.gohtml": {Data: []byte(`{{ define "layout" }}<html><title>{{ .Title }}</title><main id="content">{{ template "content" . }}</main></html>{{ end }}`)},
		"badge.gohtml":  {Data: []byte(`{{ define "badge" }}<b>{{ . }}</b>{{ end }}`)},
	}
	pages := fstest.MapFS{
		"templates/login.gohtml":    {Data: []byte(`{{ define "login" }}{{ template "layout" . }}{{ end }}{{ define "content" }}login form{{ end }}`)},
		"templates/register.gohtml": {Data: []byte(`{{ define "register" }}{{ template "layout" . }}{{ end }}{{ define "content" }}register form {{ template "phone_field" .Phone }}{{ end }}{{ define "phone_field" }}<input value="{{ . }}">{{ end }}`)},
	}

	e := New(zap.NewNop(), nil)
	err := e.Boot(
		Set{Name: SharedSet, FS: shared, Patterns: []string{"*.gohtml"}},
		Set{Name: "auth", FS: pages, Patterns: []string{"templates/*.gohtml"}},
	)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	return e
}

func TestEnginePagesKeepTheirOwnContent(t *testing.T) {
	e := bootTestEngine(t)

	login, err := e.Execute("login", "login", map[string]any{"Title": "Sign in"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(login), "login form") || strings.Contains(string(login), "register form") {
		t.Errorf("login page = %s", login)
	}

	reg, err := e.Execute("register", "register", map[string]any{"Title": "Join", "Phone": "082 123 4567"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(reg), `register form <input value="082 123 4567">`) {
		t.Errorf("register page = %s", reg)
	}
}

func TestEngineLookups(t *testing.T) {
	e := bootTestEngine(t)

	if _, err := e.Execute("missing", "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if !e.Has("phone_field") || !e.Has("badge") || e.Has("content") {
		t.Error("Has reported wrong names")
	}
	out, err := e.Execute("badge", "badge", "new")
	if err != nil || string(out) != "<b>new</b>" {
		t.Errorf("shared partial = %q, %v", out, err)
	}
}

func TestBootRequiresShared(t *testing.T) {
	if err := New(nil, nil).Boot(Set{Name: "auth", FS: fstest.MapFS{}}); err == nil {
		t.Fatal("expected error without shared set")
	}
}

func TestRenderAutoMap(t *testing.T) {
	e := bootTestEngine(t)
	targets := map[string]string{"phone-wrapper": "phone_field"}
	data := map[string]any{"Title": "Join", "Phone": "082"}

	tests := []struct {
		name    string
		headers map[string]string
		want    string
		notWant string
	}{
		{"full page", nil, "<html>", ""},
		{"htmx snippet", map[string]string{"HX-Request": "true", "HX-Target": "phone-wrapper"}, `<input value="082">`, "<html>"},
		{"htmx content", map[string]string{"HX-Request": "true", "HX-Target": "content"}, "register form", "<html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/register", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			e.RenderAutoMap(rec, req, http.StatusUnprocessableEntity, "register", targets, data)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body %q missing %q", body, tt.want)
			}
			if tt.notWant != "" && strings.Contains(body, tt.notWant) {
				t.Errorf("body %q should not contain %q", body, tt.notWant)
			}
		})
	}
}

func TestRenderFailureIs500(t *testing.T) {
	e := bootTestEngine(t)
	rec := httptest.NewRecorder()
	e.Render(rec, http.StatusOK, "nope", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDict(t *testing.T) {
	dict := Funcs()["dict"].(func(...any) (map[string]any, error))
	m, err := dict("a", 1, "b", "x")
	if err != nil || m["a"] != 1 || m["b"] != "x" {
		t.Errorf("dict = %v, %v", m, err)
	}
	if _, err := dict("a"); err == nil {
		t.Error("odd args accepted")
	}
	if _, err := dict(1, 2); err == nil {
		t.Error("non-string key accepted")
	}
}
