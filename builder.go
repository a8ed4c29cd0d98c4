package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dayforge/authcore/internal/flows"
	"github.com/dayforge/authcore/internal/rate"
	"github.com/dayforge/authcore/secret"
	"github.com/dayforge/authcore/store"
	"github.com/dayforge/authcore/token"
)

// Builder assembles an [Engine]. Configure it once, call Build, and discard
// it; a Builder is single use.
type Builder struct {
	config Config

	db    *gorm.DB
	redis redis.UniversalClient

	directory AccountDirectory
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration tree. Zero-value fields are not
// backfilled with defaults; start from the default config when overriding
// only part of it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDB sets the GORM database used for the device session store.
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithRedis sets the Redis client backing the sign-in and refresh throttles.
// Required unless both throttles are disabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the host's account directory. Required.
func (b *Builder) WithDirectory(dir AccountDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the sink receiving audit events and enables the audit
// dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles verification latency histograms. Implies
// nothing about counters; those follow WithMetricsEnabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, migrates the session table, and wires
// the engine. It returns an error rather than a partially usable engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.db == nil {
		return nil, errors.New("database required")
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.redis == nil && (cfg.RateLimit.MaxSignInAttempts > 0 || cfg.RateLimit.EnableRefreshThrottle) {
		return nil, errors.New("redis client required for rate limiting")
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cfg.Token.PrivateKey,
		PublicKey:     cfg.Token.PublicKey,
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	secrets, err := secret.New(secret.Config{
		Memory:      cfg.Secret.Memory,
		Time:        cfg.Secret.Time,
		Parallelism: cfg.Secret.Parallelism,
		SaltLength:  cfg.Secret.SaltLength,
		KeyLength:   cfg.Secret.KeyLength,
		MinLength:   cfg.Secret.MinLength,
	})
	if err != nil {
		return nil, err
	}

	hasher := token.NewHasher(cfg.Session.HasherCost)
	sessions := store.New(b.db, hasher)
	if err := sessions.Migrate(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.redis != nil {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.RateLimit.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.RateLimit.EnableRefreshThrottle,
			MaxSignInAttempts:       cfg.RateLimit.MaxSignInAttempts,
			SignInCooldownDuration:  cfg.RateLimit.SignInCooldown,
			MaxRefreshAttempts:      cfg.RateLimit.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.RateLimit.RefreshCooldown,
		})
	}

	engine := &Engine{
		config:    cfg,
		issuer:    issuer,
		hasher:    hasher,
		sessions:  sessions,
		limiter:   limiter,
		secrets:   secrets,
		directory: b.directory,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
	}
	engine.service = flows.New(engine.flowDeps())

	b.built = true
	return engine, nil
}
