// config/config.go
package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the only token issuer the service trusts.
const Issuer = "privy.io"

const defaultDatabaseURL = "sqlite:///./app.db"

// ConfigurationError is returned by Load when a required setting is missing
// or malformed. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// ArchiveConfig points at the S3-compatible bucket used for identity snapshot
// archives. An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket          string
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
}

func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// ResolvedEndpoint returns the explicit endpoint, or the Cloudflare R2 one
// derived from the account id.
func (a ArchiveConfig) ResolvedEndpoint() string {
	if a.Endpoint != "" {
		return a.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", a.AccountID)
}

// Config is built once at startup and passed by value.
type Config struct {
	Port string

	PrivyAppID        string
	PrivyPublicKeyPEM string
	PrivyPublicKey    *ecdsa.PublicKey
	Issuer            string
	TokenLeeway       time.Duration

	DatabaseURL string
	CORSOrigins []string
	LogLevel    string

	MirrorStatsInterval time.Duration

	Archive ArchiveConfig
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8000"),
		PrivyAppID:  strings.TrimSpace(os.Getenv("PRIVY_APP_ID")),
		Issuer:      Issuer,
		DatabaseURL: getEnv("DATABASE_URL", defaultDatabaseURL),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
		},
	}

	var err error
	if cfg.TokenLeeway, err = getEnvDuration("TOKEN_LEEWAY", 0); err != nil {
		return cfg, err
	}
	if cfg.MirrorStatsInterval, err = getEnvDuration("MIRROR_STATS_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}

	if cfg.PrivyAppID == "" {
		return cfg, &ConfigurationError{Field: "PRIVY_APP_ID", Reason: "is required"}
	}

	cfg.PrivyPublicKeyPEM = NormalizePublicKey(os.Getenv("PRIVY_PUBLIC_KEY"))
	if cfg.PrivyPublicKey, err = ParsePublicKey(cfg.PrivyPublicKeyPEM); err != nil {
		return cfg, err
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.TokenLeeway < 0 {
		return &ConfigurationError{Field: "TOKEN_LEEWAY", Reason: "must not be negative"}
	}
	if c.MirrorStatsInterval <= 0 {
		return &ConfigurationError{Field: "MIRROR_STATS_INTERVAL", Reason: "must be positive"}
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return &ConfigurationError{
			Field:  "LOG_LEVEL",
			Reason: fmt.Sprintf("%q must be one of: trace, debug, info, warn, error, fatal, panic", c.LogLevel),
		}
	}

	if c.Archive.Enabled() {
		if c.Archive.AccessKeyID == "" || c.Archive.AccessKeySecret == "" {
			return &ConfigurationError{Field: "R2_ACCESS_KEY_ID", Reason: "and R2_ACCESS_KEY_SECRET are required when ARCHIVE_BUCKET is set"}
		}
		if c.Archive.AccountID == "" && c.Archive.Endpoint == "" {
			return &ConfigurationError{Field: "CLOUDFLARE_ACCOUNT_ID", Reason: "or ARCHIVE_ENDPOINT is required when ARCHIVE_BUCKET is set"}
		}
	}

	return nil
}

// NormalizePublicKey turns escaped "\n" sequences (common when a PEM block is
// stored in a single-line env var) into real newlines.
func NormalizePublicKey(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, `\n`, "\n"))
}

// ParsePublicKey decodes a PEM "PUBLIC KEY" block holding a P-256 key.
func ParsePublicKey(pemText string) (*ecdsa.PublicKey, error) {
	if pemText == "" {
		return nil, &ConfigurationError{Field: "PRIVY_PUBLIC_KEY", Reason: "is required"}
	}
	if !strings.Contains(pemText, "BEGIN PUBLIC KEY") {
		return nil, &ConfigurationError{Field: "PRIVY_PUBLIC_KEY", Reason: "must be a PEM encoded public key"}
	}

	key, err := jwt.ParseECPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, &ConfigurationError{Field: "PRIVY_PUBLIC_KEY", Reason: fmt.Sprintf("could not be parsed: %v", err)}
	}
	if key.Curve == nil || key.Curve.Params().Name != "P-256" {
		return nil, &ConfigurationError{Field: "PRIVY_PUBLIC_KEY", Reason: "must be a P-256 key"}
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigurationError{Field: key, Reason: fmt.Sprintf("invalid duration %q", value)}
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
