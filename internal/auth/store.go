package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the login flow.
// All reads tolerate inconsistent RUT formatting in storage: lookups
// normalize the stored value before comparing.
type Store interface {
	// FindUserByRut returns the user whose normalized RUT matches the
	// given normalized value, or ErrNotFound.
	FindUserByRut(ctx context.Context, rut string) (*User, error)
	// RoleIDsForUser returns role IDs assigned to the user. An empty
	// result is not an error.
	RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	// PermissionsForRoles returns permission names reachable through
	// the given roles. Duplicates may be returned; callers dedupe.
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	// CreateSessionToken inserts one audit row for an issued token.
	CreateSessionToken(ctx context.Context, tok *SessionToken) error
	// SessionsForUser returns the most recent session rows for a user,
	// newest first.
	SessionsForUser(ctx context.Context, userID int64, limit int) ([]*SessionToken, error)
	// TouchLastLogin records the most recent successful login.
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}
