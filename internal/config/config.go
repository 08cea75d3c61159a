package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	LockTTL          time.Duration `mapstructure:"LOCK_TTL"`
	CalendarMode     string        `mapstructure:"CALENDAR_MODE"`
	GoogleCredsJSON  string        `mapstructure:"GOOGLE_CREDENTIALS_JSON"`
	CalendarTimeout  time.Duration `mapstructure:"CALENDAR_TIMEOUT"`
	PracticeTimezone string        `mapstructure:"PRACTICE_TIMEZONE"`
	SweepInterval    time.Duration `mapstructure:"SWEEP_INTERVAL"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("LOCK_TTL", "5s")
	v.SetDefault("CALENDAR_MODE", "fake")
	v.SetDefault("CALENDAR_TIMEOUT", "10s")
	v.SetDefault("PRACTICE_TIMEZONE", "Europe/Vienna")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("LOCK_TTL")
	v.BindEnv("CALENDAR_MODE")
	v.BindEnv("GOOGLE_CREDENTIALS_JSON")
	v.BindEnv("CALENDAR_TIMEOUT")
	v.BindEnv("PRACTICE_TIMEZONE")
	v.BindEnv("SWEEP_INTERVAL")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The Google calendar
// mode requires credentials; the booking lock requires Redis outside of
// development because the in-process locker only guards a single instance.
func (c *Config) Validate() error {
	switch c.CalendarMode {
	case "google":
		if c.GoogleCredsJSON == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_JSON is required when CALENDAR_MODE is \"google\"")
		}
	case "fake":
		if c.IsProduction() {
			return fmt.Errorf("CALENDAR_MODE \"fake\" is not allowed in production")
		}
	default:
		return fmt.Errorf("CALENDAR_MODE must be \"google\" or \"fake\", got %q", c.CalendarMode)
	}

	if c.IsProduction() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required in production (booking lock)")
	}

	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	if c.CalendarTimeout <= 0 {
		return fmt.Errorf("CALENDAR_TIMEOUT must be positive, got %s", c.CalendarTimeout)
	}

	if _, err := time.LoadLocation(c.PracticeTimezone); err != nil {
		return fmt.Errorf("PRACTICE_TIMEZONE %q is not a valid IANA zone: %w", c.PracticeTimezone, err)
	}

	return nil
}
