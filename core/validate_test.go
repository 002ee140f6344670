package core

import (
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"a@b.com", "jane.doe@example.edu", "x+y@sub.domain.org"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Fatalf("%q should be valid", e)
		}
	}
	invalid := []string{"", "plain", "a@b", "a b@c.com", "@x.com", "a@.com "}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Fatalf("%q should be invalid", e)
		}
	}
}

func TestValidateRegistration_OK(t *testing.T) {
	t.Parallel()

	in := RegisterInput{Email: "a@b.com", Password: "secret1", FirstName: "A", LastName: "B", Role: "student"}
	if err := ValidateRegistration(in); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	in.Role = "Educator"
	if err := ValidateRegistration(in); err != nil {
		t.Fatalf("role should be case-insensitive: %v", err)
	}
}

func TestValidateRegistration_PasswordMinimumLengthOnly(t *testing.T) {
	t.Parallel()

	in := RegisterInput{Email: "a@b.com", FirstName: "A", LastName: "B", Role: "student"}

	in.Password = "12345"
	err := ValidateRegistration(in)
	if err == nil {
		t.Fatal("5-char password should be rejected")
	}

	// Exactly six characters passes; no mixed-case or digit rules apply.
	in.Password = "abcdef"
	if err := ValidateRegistration(in); err != nil {
		t.Fatalf("6-char password rejected: %v", err)
	}
}

func TestValidateRegistration_CollectsAllProblems(t *testing.T) {
	t.Parallel()

	err := ValidateRegistration(RegisterInput{Email: "bad", Password: "123", Role: "wizard"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Details) != 5 {
		t.Fatalf("expected 5 details (email, password, two names, role), got %d: %v", len(err.Details), err.Details)
	}
}

func TestValidateRegistration_AdminRejected(t *testing.T) {
	t.Parallel()

	err := ValidateRegistration(RegisterInput{Email: "a@b.com", Password: "secret1", FirstName: "A", LastName: "B", Role: "admin"})
	if err == nil {
		t.Fatal("admin self-registration should be rejected")
	}
	found := false
	for _, d := range err.Details {
		if strings.Contains(d, "admin") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an admin-specific detail, got %v", err.Details)
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	t.Parallel()

	name := "A"
	if err := ValidateProfileUpdate(ProfileUpdate{FirstName: &name}); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}

	blank := " "
	if err := ValidateProfileUpdate(ProfileUpdate{FirstName: &blank}); err == nil {
		t.Fatal("blank first name should be rejected")
	}
	if err := ValidateProfileUpdate(ProfileUpdate{}); err == nil {
		t.Fatal("empty update should be rejected")
	}
}
