package identities

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"

	"github.com/akarpov87/idvault/internal/common"
	"github.com/akarpov87/idvault/internal/server/auth"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,32}$`)

const minPasswordLen = 6

// Service implements the credential store operations on top of a
// Repository. Password plaintext exists only within a single call; only
// argon2id digests are persisted.
type Service struct {
	repo Repository

	// dummyDigest is compared against when a login does not resolve to an
	// identity, so a miss costs the same as a digest mismatch.
	dummyDigest string
}

func NewService(repo Repository) (*Service, error) {
	dummy, err := auth.HashPassword("idvault-dummy-verify")
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy digest: %v", err)
	}
	return &Service{repo: repo, dummyDigest: dummy}, nil
}

// Register validates the triple, hashes the password, and creates the
// identity. Uniqueness failures surface as common.ErrorDuplicate,
// validation failures wrap common.ErrorInvalidInput.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Identity, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %v", err)
	}

	identity := &Identity{Username: username, Email: email, PasswordDigest: digest}
	identity, err = s.repo.Create(ctx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorDuplicate) {
			return nil, common.ErrorDuplicate
		}
		return nil, fmt.Errorf("error creating identity: %v", err)
	}

	return identity, nil
}

// Verify checks login (username or email) and password and returns the
// identity id. Unknown principals and wrong passwords are indistinguishable:
// both return common.ErrorUnauthorized, and the unknown-principal path still
// performs a digest comparison.
func (s *Service) Verify(ctx context.Context, login, password string) (string, error) {
	identity, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = auth.VerifyPassword(password, s.dummyDigest)
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	ok, err := auth.VerifyPassword(password, identity.PasswordDigest)
	if err != nil {
		return "", common.ErrorInternal
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}

	return identity.ID, nil
}

// Get returns the identity for a profile fetch.
func (s *Service) Get(ctx context.Context, id string) (*Identity, error) {
	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return identity, nil
}

// UpdateProfile changes username and email under Register's validation and
// uniqueness rules.
func (s *Service) UpdateProfile(ctx context.Context, id, username, email string) (*Identity, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	identity, err := s.repo.UpdateProfile(ctx, id, username, email)
	if err != nil {
		if errors.Is(err, common.ErrorDuplicate) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}
	return identity, nil
}

// ChangePassword verifies the current password before storing the digest
// of the new one. Verification and storage run inside the repository's
// rotation transaction, so two concurrent changes cannot interleave
// between the check and the write.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}

	err := s.repo.RotatePassword(ctx, id, func(digest string) (string, error) {
		ok, err := auth.VerifyPassword(current, digest)
		if err != nil {
			return "", common.ErrorInternal
		}
		if !ok {
			return "", common.ErrorUnauthorized
		}
		return auth.HashPassword(next)
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound),
			errors.Is(err, common.ErrorUnauthorized),
			errors.Is(err, common.ErrorInvalidInput):
			return err
		default:
			return common.ErrorInternal
		}
	}
	return nil
}

// SetAvatarKey records the storage key of an uploaded avatar.
func (s *Service) SetAvatarKey(ctx context.Context, id, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty avatar key", common.ErrorInvalidInput)
	}
	if err := s.repo.SetAvatarKey(ctx, id, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// Deactivate soft-deletes the identity. The record stays in storage but
// disappears from every lookup.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-32 characters of letters, digits, '.', '_' or '-'", common.ErrorInvalidInput)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: empty email", common.ErrorInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: malformed email", common.ErrorInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorInvalidInput, minPasswordLen)
	}
	return nil
}
