//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	shelfauth "github.com/shelfd/shelfauth"
)

func TestFullSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, _, cleanup := newIntegrationEngine(t)
	defer cleanup()

	seedAccount(t, engine, "ada@shelf.test", "reading-room-9", "librarian")

	pair, err := engine.Login(ctx, "ada@shelf.test", "reading-room-9")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	result, err := engine.Validate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Role != "librarian" {
		t.Fatalf("unexpected role %q", result.Role)
	}

	rotated, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Validate(ctx, rotated); err != nil {
		t.Fatalf("Validate of rotated token failed: %v", err)
	}

	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, shelfauth.ErrUntrustedToken) {
		t.Fatalf("expected ErrUntrustedToken after logout, got %v", err)
	}

	// Access tokens issued before logout live until their own TTL.
	if _, err := engine.Validate(ctx, rotated); err != nil {
		t.Fatalf("Validate after logout failed: %v", err)
	}
}

func TestAccessTokenExpiresInRegistry(t *testing.T) {
	ctx := context.Background()
	engine, mr, cleanup := newIntegrationEngine(t)
	defer cleanup()

	seedAccount(t, engine, "ada@shelf.test", "reading-room-9", "member")
	pair, err := engine.Login(ctx, "ada@shelf.test", "reading-room-9")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Push redis past the access TTL but not the refresh TTL. The JWT
	// expiry claim is still in the future (miniredis clock only), so the
	// rejection below is the registry's, not the parser's.
	mr.FastForward(11 * time.Minute)

	if _, err := engine.Validate(ctx, pair.AccessToken); !errors.Is(err, shelfauth.ErrUntrustedToken) {
		t.Fatalf("expected expired access token rejected, got %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh within refresh TTL failed: %v", err)
	}
}

func TestPasswordChangeCutsOverCleanly(t *testing.T) {
	ctx := context.Background()
	engine, _, cleanup := newIntegrationEngine(t)
	defer cleanup()

	user := seedAccount(t, engine, "ada@shelf.test", "reading-room-9", "member")

	desktop, err := engine.Login(ctx, "ada@shelf.test", "reading-room-9")
	if err != nil {
		t.Fatalf("desktop login failed: %v", err)
	}
	phone, err := engine.Login(ctx, "ada@shelf.test", "reading-room-9")
	if err != nil {
		t.Fatalf("phone login failed: %v", err)
	}

	err = engine.ChangePassword(ctx, user.UserID, "reading-room-9", "reading-room-10", desktop.AccessTokenID)
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Validate(ctx, desktop.AccessToken); err != nil {
		t.Fatalf("initiating session lost its access token: %v", err)
	}
	if _, err := engine.Validate(ctx, phone.AccessToken); !errors.Is(err, shelfauth.ErrUntrustedToken) {
		t.Fatalf("expected phone session revoked, got %v", err)
	}
	if _, err := engine.Refresh(ctx, desktop.RefreshToken); !errors.Is(err, shelfauth.ErrUntrustedToken) {
		t.Fatalf("expected desktop refresh revoked, got %v", err)
	}

	if _, err := engine.Login(ctx, "ada@shelf.test", "reading-room-10"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
