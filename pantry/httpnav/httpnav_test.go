package httpnav

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRedirectSelf(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain path", "/login", "/login"},
		{"with query", "/login?return=/account", "/login?return=/account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, tt.target, nil)
			rec := httptest.NewRecorder()
			RedirectSelf(rec, r)

			if rec.Code != http.StatusSeeOther {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if got := rec.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeeOther_RejectsOffsite(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	SeeOther(rec, r, "https://evil.example/", "/")

	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want %q", got, "/")
	}
}
