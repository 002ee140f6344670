package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the 7-day session window issued at login.
const DefaultTokenTTL = 7 * 24 * time.Hour

// sessionClaims is the signed token payload. Tokens carry identity only;
// role and active state are re-resolved from the directory on every verify.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// AuthGate issues and verifies session tokens and resolves them to live
// principals through the user directory.
type AuthGate struct {
	secret []byte
	ttl    time.Duration
	users  UserDirectory
}

// NewAuthGate wires the gate to its signing secret and directory. A zero or
// negative ttl falls back to DefaultTokenTTL.
func NewAuthGate(secret []byte, ttl time.Duration, users UserDirectory) *AuthGate {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthGate{secret: secret, ttl: ttl, users: users}
}

// IssueToken signs a session token for an already-authenticated user.
// It does not touch the directory; last-login updates are the caller's job.
func (g *AuthGate) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry, then resolves the subject against
// the directory. The returned principal's role is always the directory's
// current value, so a role change or deactivation takes effect on the very
// next request without reissuing the token.
func (g *AuthGate) VerifyToken(ctx context.Context, tokenString string) (Principal, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return g.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}

	user, err := g.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Principal{}, ErrUnknownUser
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !user.Active {
		return Principal{}, ErrAccountDeactivated
	}
	return Principal{UserID: user.ID, Role: user.Role}, nil
}
