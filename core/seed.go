package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// seedUser is one entry in the demo-account seed file.
//
// Expected file layout:
//
//	users:
//	  - email: jane.doe@example.edu
//	    password: secret1
//	    first_name: Jane
//	    last_name: Doe
//	    role: student
//	    institution: Springfield High
type seedUser struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	Role        string `yaml:"role"`
	Institution string `yaml:"institution"`
	Grade       string `yaml:"grade"`
	Subject     string `yaml:"subject"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

// SeedUsers loads demo accounts from a YAML file and inserts them through the
// directory. Already-present emails are skipped, so repeated startups are
// harmless. Intended for demo and local development environments.
func SeedUsers(ctx context.Context, users UserDirectory, cfg Config) error {
	if cfg.SeedFile == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", cfg.SeedFile, err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse seed file %s: %w", cfg.SeedFile, err)
	}

	created := 0
	for i, su := range doc.Users {
		role, ok := ParseRole(su.Role)
		if !ok {
			return fmt.Errorf("seed user %d: unknown role %q", i+1, su.Role)
		}
		if NormalizeEmail(su.Email) == "" || su.Password == "" {
			return fmt.Errorf("seed user %d: email and password are required", i+1)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), cfg.BcryptCost)
		if err != nil {
			return err
		}
		rec := &UserRecord{
			ID:           uuid.NewString(),
			Email:        NormalizeEmail(su.Email),
			PasswordHash: string(hash),
			FirstName:    strings.TrimSpace(su.FirstName),
			LastName:     strings.TrimSpace(su.LastName),
			Role:         role,
			Institution:  strings.TrimSpace(su.Institution),
			Grade:        strings.TrimSpace(su.Grade),
			Subject:      strings.TrimSpace(su.Subject),
			Active:       true,
			CreatedAt:    time.Now(),
		}
		if err := users.Insert(ctx, rec); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				continue
			}
			return fmt.Errorf("seed user %s: %w", rec.Email, err)
		}
		created++
	}

	if created > 0 {
		log.Printf("seeded %d demo users from %s", created, cfg.SeedFile)
	}
	return nil
}
