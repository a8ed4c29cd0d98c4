package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dayforge/authcore/token"
)

// ErrNoMatch is returned when no active session of the account verifies
// against the presented credential. It deliberately covers never-issued,
// already-rotated, expired, and foreign-device credentials alike.
var ErrNoMatch = errors.New("no active session matches credential")

// ErrStoreUnavailable wraps database failures so callers can distinguish
// infrastructure trouble from a credential mismatch.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the gorm-backed device-session collection. All mutations are
// atomic per row; cross-account operations exist only for the sweep and the
// owner-deletion cascade.
type Store struct {
	db     *gorm.DB
	hasher *token.Hasher
	now    func() time.Time
}

// New creates a Store on top of an open gorm handle.
func New(db *gorm.DB, hasher *token.Hasher) *Store {
	return &Store{
		db:     db,
		hasher: hasher,
		now:    time.Now,
	}
}

// Migrate creates or updates the device_sessions table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&DeviceSession{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Create hashes rawCredential and inserts a new row for ownerID expiring
// after ttl. Exactly one row is created per successful authentication event.
func (s *Store) Create(ctx context.Context, ownerID, rawCredential string, ttl time.Duration) (*DeviceSession, error) {
	hash, err := s.hasher.Hash(rawCredential)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(ttl)
	sess := &DeviceSession{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		CredentialHash: hash,
		CreatedAt:      now,
		ExpiresAt:      &expires,
	}

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess, nil
}

// FindActive returns the sessions of ownerID whose expiry is still in the
// future at call time. This is the candidate set for every verify-scan.
func (s *Store) FindActive(ctx context.Context, ownerID string) ([]DeviceSession, error) {
	var sessions []DeviceSession
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND (expires_at IS NULL OR expires_at > ?)", ownerID, s.now()).
		Order("created_at").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sessions, nil
}

// MatchAndRotate verify-scans the active sessions of ownerID, stops at the
// first row matching rawCredential, and replaces that row's hash and expiry
// in place. The write is a compare-and-swap on the previous hash: when two
// rotations race on the same credential, the loser's swap hits zero rows and
// the call fails with [ErrNoMatch]. No match at all also yields [ErrNoMatch].
func (s *Store) MatchAndRotate(ctx context.Context, ownerID, rawCredential, newRawCredential string, ttl time.Duration) (*DeviceSession, error) {
	match, err := s.scan(ctx, ownerID, rawCredential)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrNoMatch
	}

	newHash, err := s.hasher.Hash(newRawCredential)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(ttl)

	res := s.db.WithContext(ctx).
		Model(&DeviceSession{}).
		Where("id = ? AND credential_hash = ?", match.ID, match.CredentialHash).
		Updates(map[string]interface{}{
			"credential_hash": newHash,
			"expires_at":      expires,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent rotation committed first; the presented credential
		// no longer matches any row.
		return nil, ErrNoMatch
	}

	match.CredentialHash = newHash
	match.ExpiresAt = &expires
	return match, nil
}

// MatchAndDelete verify-scans the active sessions of ownerID and deletes the
// first row matching rawCredential. It reports whether a row was removed.
// An empty rawCredential is a no-op: a device cannot be selectively
// identified without its credential, and logging out every device on a
// credential-less request is explicitly avoided.
func (s *Store) MatchAndDelete(ctx context.Context, ownerID, rawCredential string) (bool, error) {
	if rawCredential == "" {
		return false, nil
	}

	match, err := s.scan(ctx, ownerID, rawCredential)
	if err != nil {
		return false, err
	}
	if match == nil {
		return false, nil
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND credential_hash = ?", match.ID, match.CredentialHash).
		Delete(&DeviceSession{})
	if res.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllForOwner removes every session row of ownerID, active or not.
// Used when the owning account is deleted.
func (s *Store) DeleteAllForOwner(ctx context.Context, ownerID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&DeviceSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// SweepExpired deletes all rows, for any owner, whose expiry has passed.
// It only targets rows that can no longer authenticate, so it is safe to
// run concurrently with itself and with every other store operation.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&DeviceSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// scan returns the first active session of ownerID verifying against raw,
// or nil when none matches. Scan order follows insertion order; at most one
// row is expected to match, so order only decides which duplicate wins in
// the hash-collision case that should never occur.
func (s *Store) scan(ctx context.Context, ownerID, raw string) (*DeviceSession, error) {
	candidates, err := s.FindActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if s.hasher.Verify(candidates[i].CredentialHash, raw) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}
