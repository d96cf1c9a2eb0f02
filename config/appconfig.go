// config/appconfig.go
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey declares a feature-level configuration key. It is read from config
// files and flags under Name and from the environment as AUTHFORM_<NAME>.
type AppKey struct {
	Name string

	// Default is the value used when nothing else sets the key.
	// Supported types: string, int, int64, bool, []string.
	Default any

	// Desc is shown in --help output.
	Desc string
}

// AppConfigValues holds the loaded values keyed by AppKey.Name.
type AppConfigValues map[string]any

// String returns a string value or "" if not found or of another type.
func (a AppConfigValues) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an int value or 0. Numeric strings (from env vars) are parsed.
func (a AppConfigValues) Int(key string) int {
	return int(a.Int64(key))
}

// Int64 returns an int64 value or 0. Numeric strings (from env vars) are parsed.
func (a AppConfigValues) Int64(key string) int64 {
	switch v := a[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscan(strings.TrimSpace(v), &n); err == nil {
			return n
		}
	}
	return 0
}

// Bool returns a bool value or false. "true"/"1" strings count as true.
func (a AppConfigValues) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	}
	return false
}

// StringSlice returns a []string value or nil.
func (a AppConfigValues) StringSlice(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
	}
	return nil
}

// Duration parses "10m", "90s", or plain seconds (600 or "600").
// It returns def when the key is unset or invalid.
func (a AppConfigValues) Duration(key string, def time.Duration) time.Duration {
	raw := a[key]
	if raw == nil {
		return def
	}
	dur, err := parseDurationFlexible(raw, def)
	if err != nil {
		return def
	}
	return dur
}

// loadAppConfig resolves app keys on v, which already carries env bindings,
// merged config files and explicit flags.
func loadAppConfig(logger *zap.Logger, v *viper.Viper, fs *pflag.FlagSet, keys []AppKey) AppConfigValues {
	result := make(AppConfigValues, len(keys))
	if len(keys) == 0 {
		return result
	}

	for _, key := range keys {
		v.SetDefault(key.Name, key.Default)
		_ = v.BindEnv(key.Name)
		if f := fs.Lookup(key.Name); f != nil && f.Changed {
			_ = v.BindPFlag(key.Name, f)
		}
		result[key.Name] = v.Get(key.Name)
	}

	fields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		if secretKey(key.Name) {
			fields = append(fields, zap.String(key.Name, "[REDACTED]"))
			continue
		}
		fields = append(fields, zap.Any(key.Name, result[key.Name]))
	}
	logger.Info("app config loaded", fields...)

	return result
}

func secretKey(name string) bool {
	n := strings.ToLower(name)
	for _, s := range []string{"key", "secret", "password", "token"} {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// registerAppFlags registers one flag per app key. Must run before Parse.
func registerAppFlags(fs *pflag.FlagSet, keys []AppKey) error {
	for _, key := range keys {
		if fs.Lookup(key.Name) != nil {
			return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
		}

		switch d := key.Default.(type) {
		case string:
			fs.String(key.Name, d, key.Desc)
		case int:
			fs.Int(key.Name, d, key.Desc)
		case int64:
			fs.Int64(key.Name, d, key.Desc)
		case bool:
			fs.Bool(key.Name, d, key.Desc)
		case []string:
			fs.String(key.Name, "", key.Desc+" (JSON array)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}
