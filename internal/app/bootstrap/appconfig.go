package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/authform/config"
	"github.com/dalemusser/authform/pantry/toast"
	"go.uber.org/zap"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// AppConfig is the service configuration beyond CoreConfig.
type AppConfig struct {
	// SessionStore selects where sessions and accounts live: "memory" or "redis".
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionMaxAge time.Duration
	CookieSecure  bool
	ToastDuration time.Duration
	BcryptCost    int

	// LoginRatePerMinute and LoginBurst bound POSTs to /login and /register
	// per client IP. A rate of 0 disables the limiter.
	LoginRatePerMinute int
	LoginBurst         int
}

var appKeys = []config.AppKey{
	{Name: "session_store", Default: StoreMemory, Desc: "Session and account store: memory or redis"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (session_store=redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "session_max_age", Default: "24h", Desc: "Session lifetime (e.g. 24h, 90m, or seconds)"},
	{Name: "cookie_secure", Default: true, Desc: "Set the Secure flag on the session cookie"},
	{Name: "toast_duration", Default: "3s", Desc: "How long toasts stay on screen"},
	{Name: "bcrypt_cost", Default: 12, Desc: "bcrypt cost for stored passwords"},
	{Name: "login_rate_per_minute", Default: 10, Desc: "Form POSTs allowed per client IP per minute (0 disables)"},
	{Name: "login_burst", Default: 5, Desc: "Burst size for the form POST limiter"},
}

// LoadConfig loads core config plus the service keys.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, vals, err := config.Load(logger, appKeys...)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := appConfigFrom(vals)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

func appConfigFrom(vals config.AppConfigValues) (AppConfig, error) {
	cfg := AppConfig{
		SessionStore:       vals.String("session_store"),
		RedisAddr:          vals.String("redis_addr"),
		RedisPassword:      vals.String("redis_password"),
		RedisDB:            vals.Int("redis_db"),
		SessionMaxAge:      vals.Duration("session_max_age", 24*time.Hour),
		CookieSecure:       vals.Bool("cookie_secure"),
		ToastDuration:      vals.Duration("toast_duration", toast.DefaultDuration),
		BcryptCost:         vals.Int("bcrypt_cost"),
		LoginRatePerMinute: vals.Int("login_rate_per_minute"),
		LoginBurst:         vals.Int("login_burst"),
	}
	switch cfg.SessionStore {
	case "":
		cfg.SessionStore = StoreMemory
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return AppConfig{}, fmt.Errorf("redis_addr is required when session_store=%s", StoreRedis)
		}
	default:
		return AppConfig{}, fmt.Errorf("session_store: unknown value %q (want memory or redis)", cfg.SessionStore)
	}
	if cfg.LoginRatePerMinute < 0 {
		return AppConfig{}, fmt.Errorf("login_rate_per_minute must not be negative")
	}
	if cfg.LoginBurst < 1 {
		cfg.LoginBurst = 1
	}
	return cfg, nil
}
