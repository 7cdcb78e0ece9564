// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Development fallbacks used only when APP_ENV=development and the secret is unset.
const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the REST API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory account store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// AccessTokenExpiry is the access token lifetime (e.g. "15m").
	AccessTokenExpiry string `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	// RefreshTokenExpiry is the refresh token lifetime (e.g. "240h").
	RefreshTokenExpiry string `mapstructure:"REFRESH_TOKEN_EXPIRY"`
	JWTIssuer          string `mapstructure:"JWT_ISSUER"`
	JWTAudience        string `mapstructure:"JWT_AUDIENCE"`
	// JWTLeeway is the tolerated clock skew on token expiry (e.g. "5s"); default none.
	JWTLeeway string `mapstructure:"JWT_LEEWAY"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// CookieSecure sets the Secure attribute on the token cookies.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// RevokeSessionsOnPasswordChange clears the refresh reference when a password changes.
	RevokeSessionsOnPasswordChange bool `mapstructure:"REVOKE_SESSIONS_ON_PASSWORD_CHANGE"`
	// CORSOrigin is the allowed browser origin; empty disables CORS headers.
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLPEndpoint is the OTLP gRPC collector address; empty disables exporting.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "240h") // 10d
	v.SetDefault("JWT_ISSUER", "videotube-auth")
	v.SetDefault("JWT_AUDIENCE", "videotube-api")
	v.SetDefault("JWT_LEEWAY", "0s")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", true)
	v.SetDefault("CORS_ORIGIN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.IsDevelopment() {
		if c.AccessTokenSecret == "" {
			c.AccessTokenSecret = devAccessSecret
		}
		if c.RefreshTokenSecret == "" {
			c.RefreshTokenSecret = devRefreshSecret
		}
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if err := positiveDuration(c.AccessTokenExpiry); err != nil {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRY %w", err)
	}
	if err := positiveDuration(c.RefreshTokenExpiry); err != nil {
		return fmt.Errorf("config: REFRESH_TOKEN_EXPIRY %w", err)
	}
	if d, err := time.ParseDuration(c.JWTLeeway); c.JWTLeeway != "" && (err != nil || d < 0) {
		return errors.New("config: JWT_LEEWAY must be a non-negative duration")
	}
	return nil
}

func positiveDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration, got %q", s)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %q", s)
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AccessTTL parses AccessTokenExpiry as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenExpiry)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTokenExpiry as a time.Duration. Returns 240h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenExpiry)
	if err != nil || d <= 0 {
		return 240 * time.Hour
	}
	return d
}

// Leeway parses JWTLeeway. Returns 0 if unset or negative.
func (c *Config) Leeway() time.Duration {
	d, err := time.ParseDuration(c.JWTLeeway)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
