package token

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor applied to refresh credentials.
// It is deliberately below the interactive-login default: every refresh is a
// verify-scan over the account's active sessions, so the factor is paid once
// per candidate row.
const DefaultHashCost = 8

// Hasher produces and verifies one-way digests of raw refresh credentials.
// The digest is salted per call, which is what forces the store into a
// verify-scan instead of a keyed lookup.
//
// Hasher is stateless and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to the
// range bcrypt supports. Cost <= 0 selects [DefaultHashCost].
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultHashCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a one-way digest of raw. It only fails on resource
// exhaustion inside the underlying primitive.
//
// Raw refresh credentials are signed tokens and exceed bcrypt's 72-byte
// input limit, so the input is pre-hashed with SHA-256 before bcrypt.
func (h *Hasher) Hash(raw string) (string, error) {
	sum := sha256.Sum256([]byte(raw))
	digest, err := bcrypt.GenerateFromPassword(sum[:], h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether raw is the credential that produced digest.
// The comparison runs the full work factor regardless of where a mismatch
// occurs, so timing does not correlate with partial matches.
func (h *Hasher) Verify(digest, raw string) bool {
	sum := sha256.Sum256([]byte(raw))
	return bcrypt.CompareHashAndPassword([]byte(digest), sum[:]) == nil
}
