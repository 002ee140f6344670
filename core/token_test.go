package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestUser(id string, role Role, active bool) *UserRecord {
	return &UserRecord{
		ID:           id,
		Email:        id + "@example.edu",
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Active:       active,
		CreatedAt:    time.Now(),
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	t.Parallel()

	dir := NewMemDirectory()
	if err := dir.Insert(context.Background(), newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate := NewAuthGate([]byte("secret"), time.Hour, dir)

	tok, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	p, err := gate.VerifyToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if p.UserID != "u1" || p.Role != RoleStudent {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()

	dir := NewMemDirectory()
	if err := dir.Insert(context.Background(), newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate := NewAuthGate([]byte("secret"), -1*time.Second, dir)

	tok, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = gate.VerifyToken(context.Background(), tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	t.Parallel()

	dir := NewMemDirectory()
	if err := dir.Insert(context.Background(), newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	issuer := NewAuthGate([]byte("right-secret"), time.Hour, dir)
	verifier := NewAuthGate([]byte("wrong-secret"), time.Hour, dir)

	tok, err := issuer.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = verifier.VerifyToken(context.Background(), tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()

	gate := NewAuthGate([]byte("secret"), time.Hour, NewMemDirectory())
	_, err := gate.VerifyToken(context.Background(), "not.a.jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_UnknownUser(t *testing.T) {
	t.Parallel()

	gate := NewAuthGate([]byte("secret"), time.Hour, NewMemDirectory())
	tok, err := gate.IssueToken("ghost")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	_, err = gate.VerifyToken(context.Background(), tok)
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestVerifyToken_DeactivationTakesEffectWithoutReissue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := NewMemDirectory()
	if err := dir.Insert(ctx, newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate := NewAuthGate([]byte("secret"), time.Hour, dir)

	tok, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if _, err := gate.VerifyToken(ctx, tok); err != nil {
		t.Fatalf("verify before deactivation: %v", err)
	}

	inactive := false
	if _, err := dir.Update(ctx, "u1", UserUpdate{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = gate.VerifyToken(ctx, tok)
	if !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}

func TestVerifyToken_RoleReadLiveFromDirectory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := NewMemDirectory()
	if err := dir.Insert(ctx, newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate := NewAuthGate([]byte("secret"), time.Hour, dir)

	tok, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	educator := RoleEducator
	if _, err := dir.Update(ctx, "u1", UserUpdate{Role: &educator}); err != nil {
		t.Fatalf("update role: %v", err)
	}

	p, err := gate.VerifyToken(ctx, tok)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if p.Role != RoleEducator {
		t.Fatalf("expected live role educator, got %s", p.Role)
	}
}

func TestIssueToken_ConcurrentSessionsBothValid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := NewMemDirectory()
	if err := dir.Insert(ctx, newTestUser("u1", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate := NewAuthGate([]byte("secret"), time.Hour, dir)

	tok1, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	tok2, err := gate.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	if _, err := gate.VerifyToken(ctx, tok1); err != nil {
		t.Fatalf("first token should verify: %v", err)
	}
	if _, err := gate.VerifyToken(ctx, tok2); err != nil {
		t.Fatalf("second token should verify: %v", err)
	}
}
