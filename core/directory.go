package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// UserRecord is the account row owned by the user directory. AuthGate reads
// it; only Insert/Update mutate it.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	PhoneNumber  string
	Institution  string
	Grade        string
	Subject      string
	Active       bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// FullName joins first and last name for display payloads.
func (u UserRecord) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Institution *string
	Grade       *string
	Subject     *string
	Role        *Role
	Active      *bool
	LastLogin   *time.Time
}

// UserListFilter narrows List results. Role empty means all roles;
// IncludeInactive is only used by the admin surface.
type UserListFilter struct {
	Role            Role
	IncludeInactive bool
}

var (
	// ErrUserNotFound is returned by lookups when no record matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Insert when the email (case-insensitive)
	// is already taken. Races between concurrent inserts are resolved by the
	// directory's uniqueness constraint, not by locking in AuthGate.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserDirectory is the lookup/persistence boundary AuthGate depends on.
// Email matching is case-insensitive in every implementation.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Insert(ctx context.Context, rec *UserRecord) error
	Update(ctx context.Context, id string, upd UserUpdate) (*UserRecord, error)

	List(ctx context.Context, f UserListFilter, page, perPage int) ([]UserRecord, int, error)
	Search(ctx context.Context, query string, role Role, limit int) ([]UserRecord, error)
	CountByRole(ctx context.Context, role Role, activeOnly bool) (int, error)
	ListByInstitution(ctx context.Context, role Role, institution string, limit int) ([]UserRecord, error)
	HasAdmin(ctx context.Context) (bool, error)
}

// NormalizeEmail applies the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
