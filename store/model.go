package store

import "time"

// DeviceSession is one row per logical login/device. The row's identity is
// stable for the life of the session: rotation rewrites CredentialHash and
// ExpiresAt in place and never allocates a new row. That stability is what
// makes "log out this one device" meaningful.
type DeviceSession struct {
	ID             string `gorm:"primaryKey;size:36"`
	OwnerID        string `gorm:"index;not null"`
	CredentialHash string `gorm:"not null"`
	CreatedAt      time.Time
	// ExpiresAt nil means the row is never swept. Every code path in this
	// package sets it; nil only occurs for rows written by external tooling.
	ExpiresAt *time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm pluralization rules.
func (DeviceSession) TableName() string { return "device_sessions" }

// Active reports whether the session may still authenticate at instant now.
// The comparison happens here, at verify time; it never relies on the sweep
// having physically removed the row.
func (s *DeviceSession) Active(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
