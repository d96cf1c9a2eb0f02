package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func loadForTest(t *testing.T, args []string, keys ...AppKey) (*CoreConfig, AppConfigValues, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	return load(zap.NewNop(), fs, args, keys)
}

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := loadForTest(t, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" || cfg.HTTP.HTTPPort != 8080 {
		t.Errorf("env/port = %q/%d, want dev/8080", cfg.Env, cfg.HTTP.HTTPPort)
	}
	if cfg.HTTP.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.MaxRequestBodyBytes != 1<<20 {
		t.Errorf("MaxRequestBodyBytes = %d", cfg.MaxRequestBodyBytes)
	}
	if cfg.Security.FrameOptions != "DENY" {
		t.Errorf("FrameOptions = %q", cfg.Security.FrameOptions)
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("AUTHFORM_HTTP_PORT", "9000")
	t.Setenv("AUTHFORM_LOG_LEVEL", "warn")
	t.Setenv("AUTHFORM_WRITE_TIMEOUT", "45")

	cfg, _, err := loadForTest(t, []string{"--http_port=9100"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.HTTPPort != 9100 {
		t.Errorf("flag should beat env: port = %d", cfg.HTTP.HTTPPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("env should beat default: log_level = %q", cfg.LogLevel)
	}
	if cfg.HTTP.WriteTimeout != 45*time.Second {
		t.Errorf("plain seconds: WriteTimeout = %v", cfg.HTTP.WriteTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("http_port: 8181\ntoast_duration: 5s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, app, err := load(zap.NewNop(), fs, nil, []AppKey{{Name: "toast_duration", Default: "3s"}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.HTTPPort != 8181 {
		t.Errorf("port = %d, want 8181", cfg.HTTP.HTTPPort)
	}
	if got := app.Duration("toast_duration", time.Second); got != 5*time.Second {
		t.Errorf("toast_duration = %v, want 5s", got)
	}
}

func TestLoadAggregatesErrors(t *testing.T) {
	t.Setenv("AUTHFORM_ENV", "staging")
	t.Setenv("AUTHFORM_IDLE_TIMEOUT", "soon")

	_, _, err := loadForTest(t, []string{"--use_https"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"idle_timeout", `env must be "dev" or "prod"`, "AUTHFORM_CERT_FILE"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestAppKeys(t *testing.T) {
	t.Setenv("AUTHFORM_SESSION_STORE", "redis")
	t.Setenv("AUTHFORM_REDIS_DB", "3")

	keys := []AppKey{
		{Name: "session_store", Default: "memory"},
		{Name: "redis_db", Default: 0},
		{Name: "cookie_secure", Default: false},
		{Name: "login_burst", Default: 5},
	}
	_, app, err := loadForTest(t, []string{"--cookie_secure"}, keys...)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := app.String("session_store"); got != "redis" {
		t.Errorf("session_store = %q", got)
	}
	if got := app.Int("redis_db"); got != 3 {
		t.Errorf("redis_db = %d", got)
	}
	if !app.Bool("cookie_secure") {
		t.Error("cookie_secure flag not applied")
	}
	if got := app.Int("login_burst"); got != 5 {
		t.Errorf("login_burst = %d", got)
	}
}

func TestRegisterAppFlagsConflict(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerCoreFlags(fs)
	if err := registerAppFlags(fs, []AppKey{{Name: "http_port", Default: 1}}); err == nil {
		t.Fatal("expected conflict error")
	}
	if err := registerAppFlags(fs, []AppKey{{Name: "weird", Default: 1.5}}); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestParseDurationFlexible(t *testing.T) {
	def := 7 * time.Second
	tests := []struct {
		raw     any
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"120", 120 * time.Second, false},
		{"", def, false},
		{nil, def, false},
		{30, 30 * time.Second, false},
		{int64(4), 4 * time.Second, false},
		{1.5, 1500 * time.Millisecond, false},
		{"-5s", def, true},
		{0, def, true},
		{"later", def, true},
	}
	for _, tt := range tests {
		got, err := parseDurationFlexible(tt.raw, def)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDurationFlexible(%v) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseDurationFlexible(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
