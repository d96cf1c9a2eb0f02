package bootstrap

import (
	"testing"
	"time"

	"github.com/dalemusser/authform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigFromDefaults(t *testing.T) {
	vals := config.AppConfigValues{}
	for _, k := range appKeys {
		vals[k.Name] = k.Default
	}
	cfg, err := appConfigFrom(vals)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 3*time.Second, cfg.ToastDuration)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 10, cfg.LoginRatePerMinute)
	assert.Equal(t, 5, cfg.LoginBurst)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestAppConfigFromEnvStrings(t *testing.T) {
	cfg, err := appConfigFrom(config.AppConfigValues{
		"session_store":         "redis",
		"redis_addr":            "cache:6379",
		"redis_db":              "2",
		"session_max_age":       "600",
		"cookie_secure":         "false",
		"toast_duration":        "5s",
		"login_rate_per_minute": "0",
		"login_burst":           "0",
	})
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.SessionMaxAge)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 5*time.Second, cfg.ToastDuration)
	assert.Equal(t, 0, cfg.LoginRatePerMinute)
	assert.Equal(t, 1, cfg.LoginBurst)
}

func TestAppConfigFromRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		vals config.AppConfigValues
	}{
		{"unknown store", config.AppConfigValues{"session_store": "mongo"}},
		{"redis without addr", config.AppConfigValues{"session_store": "redis", "redis_addr": ""}},
		{"negative rate", config.AppConfigValues{"login_rate_per_minute": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := appConfigFrom(tt.vals)
			assert.Error(t, err)
		})
	}
}
