// Package sessions implements the session issuer/validator: minting
// signed, time-bounded access tokens, validating them on every protected
// request, and invalidating them through the persisted revocation set.
//
// A token's lifecycle is Issued -> Valid -> Expired or Revoked; both end
// states are terminal.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/akarpov87/idvault/internal/common"
	"github.com/akarpov87/idvault/internal/server/auth"
	"github.com/akarpov87/idvault/internal/server/config"
	"github.com/akarpov87/idvault/internal/server/revocations"
)

// Session is an issued access token together with its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Service issues and validates access tokens. The signing secret and ttl
// are fixed at construction; the revocation repository is the only
// mutable state it touches.
type Service struct {
	revocationRepo revocations.Repository
	secret         []byte
	ttl            time.Duration
}

// NewService constructs a Service from the revocation repository and
// server config.
func NewService(revocationRepo revocations.Repository, cfg *config.Config) *Service {
	return &Service{
		revocationRepo: revocationRepo,
		secret:         []byte(cfg.SecretKey),
		ttl:            cfg.AccessTokenTTL,
	}
}

// Issue mints a signed token bound to identityID, valid for the
// configured ttl.
func (s *Service) Issue(ctx context.Context, identityID string) (*Session, error) {
	token, _, expiresAt, err := auth.GenerateToken(identityID, s.secret, s.ttl)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Validate checks signature and expiry, then consults the revocation set,
// and returns the identity id the token is bound to. Failures are
// common.ErrInvalidToken, common.ErrTokenExpired, or
// common.ErrTokenRevoked.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return "", err
	}

	revoked, err := s.revocationRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", common.ErrorInternal
	}
	if revoked {
		return "", common.ErrTokenRevoked
	}

	return claims.Subject, nil
}

// Invalidate adds the token's identifier to the revocation set until the
// token's natural expiry. It is idempotent: a malformed, expired, or
// already-revoked token is a no-op, never an error.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		// Malformed tokens were never valid; expired ones are already in
		// a terminal state.
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			return nil
		}
		return common.ErrorInternal
	}

	if err := s.revocationRepo.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// PruneExpired drops revocation entries whose tokens have expired on
// their own.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	return s.revocationRepo.PruneExpired(ctx)
}
