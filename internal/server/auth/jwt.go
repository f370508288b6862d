// Package auth implements the cryptographic pieces of the session layer:
// HS256 access tokens and stateless password hashing. It carries no state
// of its own; the signing secret is passed in by the caller.
package auth

import (
	"errors"
	"time"

	"github.com/akarpov87/idvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the registered JWT claims as used by idvault: Subject holds
// the identity id, ID holds the token identifier (jti) consulted by the
// revocation set.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken mints a signed HS256 token for identityID valid for ttl.
// It returns the compact token string, the token id (jti), and the expiry.
func GenerateToken(identityID string, secretKey []byte, ttl time.Duration) (string, string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return tokenString, jti, expiresAt, nil
}

// ParseToken verifies the signature and expiry of tokenString and returns
// its claims. Failures map to the shared sentinels: common.ErrTokenExpired
// for an expired token, common.ErrInvalidToken for anything structurally
// or cryptographically wrong.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
