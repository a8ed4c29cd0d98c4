package authcore

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config is the engine configuration tree. Instances are configured during
// initialization and treated as immutable once Build has run.
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	Secret    SecretConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TokenConfig controls the signed credential pair.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// SessionConfig controls the device session store.
type SessionConfig struct {
	// HasherCost is the bcrypt cost used for stored refresh credential
	// hashes. Verification cost is paid on every refresh, so this stays
	// deliberately below interactive password hashing costs.
	HasherCost int
	// SweepTimeout bounds the detached expired-row sweep that runs after a
	// successful refresh.
	SweepTimeout time.Duration
}

// SecretConfig holds the argon2id parameters for account secrets.
type SecretConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// RateLimitConfig controls the Redis-backed throttles.
type RateLimitConfig struct {
	EnableIPThrottle      bool
	EnableRefreshThrottle bool
	MaxSignInAttempts     int
	SignInCooldown        time.Duration
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the default configuration tree. Keys are not
// included; hosts fill Token.PrivateKey and Token.PublicKey themselves.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			HasherCost:   8,
			SweepTimeout: 5 * time.Second,
		},
		Secret: SecretConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		RateLimit: RateLimitConfig{
			EnableIPThrottle:      true,
			EnableRefreshThrottle: true,
			MaxSignInAttempts:     5,
			SignInCooldown:        15 * time.Minute,
			MaxRefreshAttempts:    20,
			RefreshCooldown:       1 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for internal consistency. Build calls it
// before wiring anything.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("Token AccessTTL must be shorter than RefreshTTL")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported token signing method")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.HasherCost < bcrypt.MinCost || c.Session.HasherCost > bcrypt.MaxCost {
		return errors.New("Session HasherCost out of bcrypt range")
	}
	if c.Session.SweepTimeout <= 0 {
		return errors.New("Session SweepTimeout must be > 0")
	}

	// Secret
	if c.Secret.Memory < 8*1024 {
		return errors.New("Secret Memory must be >= 8192 KB")
	}
	if c.Secret.Time < 1 {
		return errors.New("Secret Time must be >= 1")
	}
	if c.Secret.Parallelism < 1 {
		return errors.New("Secret Parallelism must be >= 1")
	}
	if c.Secret.SaltLength < 16 {
		return errors.New("Secret SaltLength must be >= 16")
	}
	if c.Secret.KeyLength < 16 {
		return errors.New("Secret KeyLength must be >= 16")
	}
	if c.Secret.MinLength < 1 {
		return errors.New("Secret MinLength must be >= 1")
	}

	// Rate limiting
	if c.RateLimit.MaxSignInAttempts <= 0 {
		return errors.New("RateLimit MaxSignInAttempts must be > 0")
	}
	if c.RateLimit.SignInCooldown <= 0 {
		return errors.New("RateLimit SignInCooldown must be > 0")
	}
	if c.RateLimit.EnableRefreshThrottle {
		if c.RateLimit.MaxRefreshAttempts <= 0 {
			return errors.New("RateLimit MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.RateLimit.RefreshCooldown <= 0 {
			return errors.New("RateLimit RefreshCooldown must be > 0 when refresh throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
