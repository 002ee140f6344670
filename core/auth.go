package core

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of account roles. There is no hierarchy between
// roles; every protected operation declares its exact allowed set.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEducator Role = "educator"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a raw role string and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleEducator:
		return RoleEducator, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Principal is the authenticated identity resolved from a verified token.
// The role is always read live from the directory, never from token content.
type Principal struct {
	UserID string
	Role   Role
}

var (
	// ErrNoCredential means no bearer token was presented where one is required.
	ErrNoCredential = errors.New("no credential provided")
	// ErrInvalidToken covers bad signatures and malformed token structure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token is past its validity window.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnknownUser means a valid token references a user that no longer exists.
	ErrUnknownUser = errors.New("unknown user")
	// ErrAccountDeactivated means the user exists but is inactive.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrInvalidCredentials is returned for a wrong password and for an
	// unknown email alike, so login failures do not leak account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden means the principal lacks a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrDirectoryUnavailable wraps backend failures from the user directory
	// so callers can tell "access denied" from "backend unreachable".
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
)

// ValidationError carries per-field messages for malformed registration or
// profile input.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Details, "; "))
}

// Authorize is a pure membership test against an explicit allow-set.
// Admin does not implicitly satisfy an educator-only check.
func Authorize(p Principal, allowed ...Role) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
