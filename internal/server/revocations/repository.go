// Package revocations manages the persisted revocation set: token
// identifiers (jti) that have been explicitly invalidated before their
// natural expiry. Entries only need to live as long as the token they
// name; PruneExpired reclaims the rest.
package revocations

import (
	"context"
	"time"
)

// Repository defines operations on the revocation set.
type Repository interface {
	// Add records the token identifier as revoked until expiresAt.
	// Adding an already-revoked identifier is a no-op, not an error.
	Add(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether the token identifier is in the set.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PruneExpired removes entries whose expiry has passed and returns
	// the number of rows deleted.
	PruneExpired(ctx context.Context) (int64, error)
}
