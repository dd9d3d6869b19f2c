package auth

import "time"

// User is the identity record. Provisioning is handled elsewhere; the
// login flow only reads it, apart from an optional last-login touch.
type User struct {
	ID           int64
	Rut          string
	UserName     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
	SystemID     int
}

// Permission is a named capability. Roles exist only as reference
// rows behind the resolver queries; the flow never materializes them.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// SessionToken is the audit record persisted once per issued token.
// Written exactly once per successful login, never mutated here.
type SessionToken struct {
	ID         string
	UserID     int64
	Token      string
	DeviceInfo string
	IPAddress  *string
	Country    *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	IsRevoked  bool
	QueryAt    time.Time
	SystemID   int
}
