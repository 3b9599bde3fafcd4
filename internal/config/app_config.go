package config

import (
	"time"
)

type AppConfig struct {
	Port           int           `yaml:"port" env:"APP_PORT" env-default:"8080"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"APP_DEFAULT_TIMEOUT" env-default:"10s"`
	Hostname       string        `yaml:"hostname" env:"APP_HOSTNAME" env-default:"happyphone"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File    string `yaml:"file" env:"LOG_FILE"`
	Journal bool   `yaml:"journal" env:"LOG_JOURNAL"`
}

type AuthConfig struct {
	// Empty secret disables token checks and trusts X-User-* headers.
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"720h"`
}

type TerminalConfig struct {
	HistorySize      int           `yaml:"history_size" env:"TERMINAL_HISTORY_SIZE" env-default:"16"`
	MaxContentLength int           `yaml:"max_content_length" env:"TERMINAL_MAX_CONTENT_LENGTH" env-default:"10000"`
	RecheckInterval  time.Duration `yaml:"recheck_interval" env:"TERMINAL_RECHECK_INTERVAL" env-default:"2s"`
	RecheckLimit     int           `yaml:"recheck_limit" env:"TERMINAL_RECHECK_LIMIT" env-default:"30"`
}
