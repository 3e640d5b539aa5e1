package shelfauth

import (
	"errors"
	"time"

	"github.com/shelfd/shelfauth/password"
)

// Config is the full engine configuration. Instances are validated in
// Builder.Build and treated as immutable afterwards.
type Config struct {
	Token    TokenConfig
	JWT      JWTConfig
	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig sets the registry key namespace and the two token lifetimes.
// AccessTTL must be strictly shorter than RefreshTTL.
type TokenConfig struct {
	RedisPrefix string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// JWTConfig carries the signing material for issued bearer tokens. TTLs
// come from TokenConfig so the signed expiry claims and the registry
// entries never disagree.
type JWTConfig struct {
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the engine's atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// PasswordMinLength is the minimum accepted plaintext length for new
// passwords, in bytes.
const PasswordMinLength = 10

// DefaultConfig returns a configuration suitable for most deployments:
// 15-minute access tokens, 30-day refresh tokens, argon2id defaults, audit
// and metrics enabled.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			RedisPrefix: "sa",
			AccessTTL:   15 * time.Minute,
			RefreshTTL:  30 * 24 * time.Hour,
		},
		JWT: JWTConfig{
			SigningMethod: "ed25519",
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field invariants that the sub-package constructors
// cannot see on their own.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("token access TTL must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("token refresh TTL must exceed access TTL")
	}
	if c.Token.RedisPrefix == "" {
		return errors.New("token redis prefix must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}

	return nil
}
