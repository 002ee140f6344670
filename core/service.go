package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService implements login, registration, and profile updates on top of
// the user directory and the auth gate. It is the single credential-handling
// code path; there is no separate dev-mode variant.
type AuthService struct {
	users      UserDirectory
	gate       *AuthGate
	bcryptCost int
	// dummyHash keeps bcrypt running for unknown emails so a login attempt
	// takes roughly the same time whether or not the account exists.
	dummyHash []byte
}

// LoginResult bundles the authenticated principal, its user record, and the
// freshly issued session token.
type LoginResult struct {
	Principal Principal
	User      *UserRecord
	Token     string
}

// RegisterInput is the raw registration payload before validation.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// NewAuthService constructs the service. An out-of-range cost falls back to
// bcrypt.DefaultCost.
func NewAuthService(users UserDirectory, gate *AuthGate, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("econnect-dummy-credential"), bcryptCost)
	if err != nil {
		// GenerateFromPassword only fails on invalid cost, which is checked above.
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return &AuthService{users: users, gate: gate, bcryptCost: bcryptCost, dummyHash: dummy}
}

// Login verifies email/password and issues a session token. Unknown email and
// wrong password both yield ErrInvalidCredentials; deactivation is disclosed
// only after the password verifies.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	// The hash comparison runs even when the lookup missed, against a dummy
	// hash, so response timing does not reveal account existence.
	storedHash := s.dummyHash
	if user != nil {
		storedHash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(storedHash, []byte(password)) != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	now := time.Now()
	updated, err := s.users.Update(ctx, user.ID, UserUpdate{LastLogin: &now})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	token, err := s.gate.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Principal: Principal{UserID: user.ID, Role: user.Role},
		User:      updated,
		Token:     token,
	}, nil
}

// Register validates the input, hashes the password, creates the record, and
// issues a token as login would. Self-registration as admin is rejected;
// admin accounts come from bootstrap or another admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	if verr := ValidateRegistration(in); verr != nil {
		return nil, verr
	}
	role, _ := ParseRole(in.Role)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec := &UserRecord{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	token, err := s.gate.IssueToken(rec.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Principal: Principal{UserID: rec.ID, Role: rec.Role},
		User:      rec,
		Token:     token,
	}, nil
}

// ProfileUpdate is the self-service subset of UserUpdate accepted over HTTP.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Institution *string
	Grade       *string
	Subject     *string
}

// UpdateProfile applies a partial profile update for the principal's own
// record. Students cannot set subject and educators cannot set grade; those
// fields are dropped rather than rejected, matching the public API contract.
func (s *AuthService) UpdateProfile(ctx context.Context, p Principal, in ProfileUpdate) (*UserRecord, error) {
	if verr := ValidateProfileUpdate(in); verr != nil {
		return nil, verr
	}
	if p.Role == RoleStudent {
		in.Subject = nil
	}
	if p.Role == RoleEducator {
		in.Grade = nil
	}

	upd := UserUpdate{
		FirstName:   trimmed(in.FirstName),
		LastName:    trimmed(in.LastName),
		PhoneNumber: trimmed(in.PhoneNumber),
		Institution: trimmed(in.Institution),
		Grade:       trimmed(in.Grade),
		Subject:     trimmed(in.Subject),
	}
	rec, err := s.users.Update(ctx, p.UserID, upd)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return rec, nil
}

// SetActive flips the account's active flag. Takes effect on the user's next
// token verification; in-flight requests are not revoked.
func (s *AuthService) SetActive(ctx context.Context, userID string, active bool) (*UserRecord, error) {
	rec, err := s.users.Update(ctx, userID, UserUpdate{Active: &active})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return rec, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
