// Package identities implements the credential store: durable identity
// records with unique usernames and emails, password digests, and soft
// deletion.
package identities

import "context"

// Repository is the persistence contract for identities. Soft-deleted
// records are invisible to every lookup.
type Repository interface {
	// Create inserts a new identity and returns it with its generated id
	// and creation time. Returns common.ErrorDuplicate when the username
	// or email is already taken; uniqueness is enforced by the store's
	// constraints, not by a prior lookup.
	Create(ctx context.Context, identity *Identity) (*Identity, error)

	// GetByLogin finds an identity whose username or email equals login.
	GetByLogin(ctx context.Context, login string) (*Identity, error)

	// GetByID finds an identity by id.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// UpdateProfile changes username and email, under the same uniqueness
	// rules as Create, and returns the updated identity.
	UpdateProfile(ctx context.Context, id, username, email string) (*Identity, error)

	// RotatePassword reads the current digest, passes it to rotate, and
	// stores the digest rotate returns, all in one transaction with the
	// row locked, so concurrent rotations serialize. An error from rotate
	// aborts the rotation and is returned unchanged.
	RotatePassword(ctx context.Context, id string, rotate func(current string) (string, error)) error

	// SetAvatarKey records the object-storage key of the identity's avatar.
	SetAvatarKey(ctx context.Context, id, key string) error

	// SoftDelete marks the identity deleted; the row is never removed.
	SoftDelete(ctx context.Context, id string) error
}
