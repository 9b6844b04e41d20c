// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/plansync/plansync/testutil"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	st := testutil.SetupTestStore(t)
	ctx := context.Background()

	u, err := Register(ctx, st, "Alice@Example.COM", "Alice", "supersecret")
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("Email should be stored lowercased, got %q", u.Email)
	}
	if u.PasswordHash == "supersecret" || u.PasswordHash == "" {
		t.Error("Password must be stored hashed")
	}

	// Login is case-insensitive on email.
	got, err := Authenticate(ctx, st, "ALICE@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Expected user %s, got %s", u.ID, got.ID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	st := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, st, "alice@example.com", "Alice", "supersecret"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	// Wrong password and unknown email yield the same error.
	if _, err := Authenticate(ctx, st, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := Authenticate(ctx, st, "nobody@example.com", "supersecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	st := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, st, "not-an-email", "Alice", "supersecret"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
	if _, err := Register(ctx, st, "alice@example.com", "Alice", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}

	if _, err := Register(ctx, st, "alice@example.com", "Alice", "supersecret"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if _, err := Register(ctx, st, "alice@example.com", "Other Alice", "supersecret"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("Failed to hash: %v", err)
	}
	if hash == "supersecret" {
		t.Error("Hash must differ from the password")
	}

	hash2, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("Failed to hash: %v", err)
	}
	if hash == hash2 {
		t.Error("bcrypt hashes should be salted")
	}
}
