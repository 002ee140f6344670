package core

import (
	"regexp"
	"strings"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether the address has the basic user@host.tld shape.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateRegistration collects every problem with a registration payload.
// Admin is not a self-registrable role.
func ValidateRegistration(in RegisterInput) *ValidationError {
	var details []string

	email := NormalizeEmail(in.Email)
	if email == "" {
		details = append(details, "email is required")
	} else if !IsValidEmail(email) {
		details = append(details, "email format is invalid")
	}

	if len(in.Password) < minPasswordLength {
		details = append(details, "password must be at least 6 characters")
	}

	if strings.TrimSpace(in.FirstName) == "" {
		details = append(details, "first name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		details = append(details, "last name is required")
	}

	role, ok := ParseRole(in.Role)
	switch {
	case !ok:
		details = append(details, "role must be student or educator")
	case role == RoleAdmin:
		details = append(details, "admin accounts cannot be self-registered")
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

// ValidateProfileUpdate rejects updates that would blank out a name and
// updates that carry nothing at all.
func ValidateProfileUpdate(in ProfileUpdate) *ValidationError {
	var details []string

	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		details = append(details, "first name cannot be empty")
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		details = append(details, "last name cannot be empty")
	}
	if in.FirstName == nil && in.LastName == nil && in.PhoneNumber == nil &&
		in.Institution == nil && in.Grade == nil && in.Subject == nil {
		details = append(details, "no fields to update")
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}
