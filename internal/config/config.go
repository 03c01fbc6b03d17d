package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TASKBOARD"

type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSecret     string
	TokenTTL      time.Duration
	SessionTTL    time.Duration
	SessionCookie string
	CORSOrigin    string
	DevLogin      bool
	Log           LogConfig
	SMTP          SMTPConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig is optional; share notifications are disabled unless Host and
// From are set.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SetDefaults registers every key with its default so env overrides work
// without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8787")
	v.SetDefault("database_url", "sqlite://data/taskboard.db")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "taskboard-dev-secret")
	v.SetDefault("token_ttl", "720h")
	v.SetDefault("session_ttl", "720h")
	v.SetDefault("session_cookie", "taskboard_session")
	v.SetDefault("cors_origin", "*")
	v.SetDefault("dev_login", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "Taskboard")
}

// Load reads configuration from defaults, an optional YAML file and
// TASKBOARD_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:          v.GetString("addr"),
		DatabaseURL:   v.GetString("database_url"),
		RedisURL:      v.GetString("redis_url"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      v.GetDuration("token_ttl"),
		SessionTTL:    v.GetDuration("session_ttl"),
		SessionCookie: v.GetString("session_cookie"),
		CORSOrigin:    v.GetString("cors_origin"),
		DevLogin:      v.GetBool("dev_login"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetString("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			FromName: v.GetString("smtp.from_name"),
		},
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt_secret must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("token_ttl must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("session_ttl must be positive")
	}
	return cfg, nil
}
