package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bootstrapAdminEmail = "admin@econnect.local"

// BootstrapAdmin creates an initial admin account when none exists. Admins
// cannot self-register, so a fresh deployment needs this to get its first one.
// It is idempotent: if an admin already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, users UserDirectory, cfg Config) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := users.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		return err
	}

	rec := &UserRecord{
		ID:           uuid.NewString(),
		Email:        bootstrapAdminEmail,
		PasswordHash: string(hash),
		FirstName:    "Platform",
		LastName:     "Admin",
		Role:         RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := users.Insert(ctx, rec); err != nil {
		// A racing replica may have created the admin first.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return err
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Printf("initial admin created; credentials written to %s", cfg.InitialAdminPasswordPath)
	} else {
		log.Printf("initial admin created email=%s password=%s", bootstrapAdminEmail, password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
