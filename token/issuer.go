package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm used for both credentials.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// UseAccess marks a token minted as an access credential.
	UseAccess = "access"
	// UseRefresh marks a token minted as a refresh credential.
	UseRefresh = "refresh"
)

// ErrWrongUse is returned when a structurally valid token is presented in
// the wrong role (an access token where a refresh token is expected, or the
// reverse).
var ErrWrongUse = errors.New("token presented for wrong use")

// Config holds issuer settings. Instances are configured once during engine
// construction and treated as immutable afterwards.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims is the claim set carried by both credential kinds. Subject is the
// account identifier; Use distinguishes access from refresh.
type Claims struct {
	Use string `json:"use"`
	jwt.RegisteredClaims
}

// Pair is one issuance result: two independently signed credentials bound
// to the same subject.
type Pair struct {
	Access  string
	Refresh string
}

// Issuer mints and verifies the access/refresh credential pair. An Issuer
// has no mutable state; the two signing operations of [Issuer.IssuePair]
// share nothing and may run concurrently.
type Issuer struct {
	config Config
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Issuer{config: cfg}, nil
}

// IssuePair mints a fresh access+refresh credential pair for subject.
// Each credential carries a unique jti, so two pairs for the same subject
// never collide even within the same second.
func (i *Issuer) IssuePair(subject string) (Pair, error) {
	access, err := i.IssueAccess(subject)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(subject)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// IssueAccess mints a short-lived access credential for subject.
func (i *Issuer) IssueAccess(subject string) (string, error) {
	return i.sign(subject, UseAccess, i.config.AccessTTL)
}

// IssueRefresh mints a long-lived refresh credential for subject.
func (i *Issuer) IssueRefresh(subject string) (string, error) {
	return i.sign(subject, UseRefresh, i.config.RefreshTTL)
}

// ParseAccess verifies tokenStr as an access credential and returns its
// claims.
func (i *Issuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, UseAccess)
}

// ParseRefresh verifies tokenStr as a refresh credential and returns its
// claims.
func (i *Issuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, UseRefresh)
}

func (i *Issuer) sign(subject, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Use: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.config.Issuer,
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}

	tok := jwt.NewWithClaims(i.method(), claims)

	key, err := i.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

func (i *Issuer) parse(tokenStr, use string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Use != use {
		return nil, ErrWrongUse
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}

	return claims, nil
}

func (i *Issuer) method() jwt.SigningMethod {
	switch i.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (i *Issuer) signKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(i.config.PrivateKey)
	}
}

func (i *Issuer) verifyKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		return parseEdPublicKey(i.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
