package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	auth, err := NewAuthManager(memory.NewSeeded(),
		"0123456789abcdef0123456789abcdef", time.Hour, "492817")
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	return auth
}

func TestLoginAndParseToken(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleOperator {
		t.Fatalf("role: expected operator, got %q", resp.Role)
	}
	actor, err := auth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleOperator {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	auth := newTestAuth(t)
	if _, err := auth.Login(context.Background(), "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.Login(context.Background(), "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestLoginThrottlesRepeatedFailures(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := auth.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := auth.Login(ctx, "admin", "admin123"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts after burst, got %v", err)
	}
}

func TestElevateWithPIN(t *testing.T) {
	auth := newTestAuth(t)
	actor := domain.Actor{Username: "lucia", Role: domain.RoleOperator}

	if _, err := auth.Elevate(actor, "000000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong pin, got %v", err)
	}
	resp, err := auth.Elevate(actor, "492817")
	if err != nil {
		t.Fatalf("elevate: %v", err)
	}
	if resp.Role != domain.RoleSupervisor {
		t.Fatalf("elevated role: expected supervisor, got %q", resp.Role)
	}
	elevated, err := auth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse elevated token: %v", err)
	}
	if elevated.Role != domain.RoleSupervisor || elevated.Username != "lucia" {
		t.Fatalf("unexpected elevated actor %+v", elevated)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth(t)
	if _, err := auth.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
