// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the symmetric signing secret for HS256 tokens. Required; the server refuses to boot without it.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "archipelago-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "archipelago-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTLMinutes is the access token lifetime in minutes.
	JWTAccessTTLMinutes int `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	// JWTRefreshGrace bounds how long after expiry an access token is still accepted
	// for refresh (e.g. "720h"). Empty or invalid keeps the default: any correctly
	// signed token is refreshable regardless of age.
	JWTRefreshGrace string `mapstructure:"JWT_REFRESH_GRACE"`
	// BcryptCost is the bcrypt cost factor (4 to 31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// BlobDir is the root directory for stored avatars and banners.
	BlobDir string `mapstructure:"BLOB_DIR"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
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

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "archipelago-auth")
	v.SetDefault("JWT_AUDIENCE", "archipelago-api")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_GRACE", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BLOB_DIR", "./blobs")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		return nil, errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set")
	}
	if cfg.JWTAccessTTLMinutes <= 0 {
		return nil, errors.New("config: JWT_ACCESS_TTL_MINUTES must be positive")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

// RefreshGrace parses JWTRefreshGrace as a time.Duration. Returns 0 (unbounded)
// if unset or invalid.
func (c *Config) RefreshGrace() time.Duration {
	if c.JWTRefreshGrace == "" {
		return 0
	}
	d, err := time.ParseDuration(c.JWTRefreshGrace)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
