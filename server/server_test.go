package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestIsValidHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"example.com:8443", true},
		{"[::1]:8080", true},
		{"", false},
		{"example.com:99999", false},
		{"evil.com/path", false},
		{"a\r\nb", false},
		{"user@example.com", false},
		{"[zz]:80", false},
	}
	for _, tt := range tests {
		if got := isValidHost(tt.host); got != tt.want {
			t.Errorf("isValidHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestHTTPRedirectHandler(t *testing.T) {
	h := httpRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "http://auth.example/login?return=/account", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d", rec.Code)
	}
	if got, want := rec.Header().Get("Location"), "https://auth.example/login?return=/account"; got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}

	req.Host = "bad/host"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad host status = %d", rec.Code)
	}
}

func TestValidateTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(cert, []byte("c"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(key, []byte("k"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := validateTLSFiles(cert, key); err != nil {
		t.Errorf("valid files: %v", err)
	}
	if err := validateTLSFiles(cert, filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("missing key accepted")
	}
	if err := validateTLSFiles(dir, key); err == nil {
		t.Error("directory accepted as cert")
	}
	if err := validateTLSFiles("", ""); err == nil {
		t.Error("empty paths accepted")
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(key, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := validateTLSFiles(cert, key); !errors.Is(err, errInsecureKey) {
			t.Errorf("err = %v, want errInsecureKey", err)
		}
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, time.Second, srv, ln, nil, zap.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
