package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shelfd/shelfauth/registry"
)

func newTestManager(t *testing.T) (*Manager, *registry.Registry) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	reg := registry.New(rdb, "sa")
	m, err := NewManager(reg, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, reg
}

func TestNewManagerValidatesTTLs(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := registry.New(rdb, "sa")

	if _, err := NewManager(reg, 0, time.Hour); err == nil {
		t.Fatal("expected zero access TTL rejection")
	}
	if _, err := NewManager(reg, time.Hour, time.Hour); err == nil {
		t.Fatal("expected refresh TTL <= access TTL rejection")
	}
	if _, err := NewManager(nil, time.Minute, time.Hour); err == nil {
		t.Fatal("expected nil registry rejection")
	}
}

func TestIssueRegistersBothIDs(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessTokenID == "" || pair.RefreshTokenID == "" {
		t.Fatalf("expected non-empty ids, got %+v", pair)
	}
	if pair.AccessTokenID == pair.RefreshTokenID {
		t.Fatal("expected distinct access and refresh ids")
	}

	if owner, err := reg.Get(ctx, registry.Refresh, pair.RefreshTokenID); err != nil || owner != "u-1" {
		t.Fatalf("refresh lookup: owner=%q err=%v", owner, err)
	}
	if owner, err := reg.Get(ctx, registry.Access, pair.AccessTokenID); err != nil || owner != "u-1" {
		t.Fatalf("access lookup: owner=%q err=%v", owner, err)
	}
}

func TestRotateUnknownRefreshFails(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Rotate(ctx, "never-issued", "u-1"); !errors.Is(err, ErrUntrustedToken) {
		t.Fatalf("expected ErrUntrustedToken, got %v", err)
	}

	// A failed rotate must not leave anything behind.
	ids, err := reg.OwnerTokenIDs(ctx, registry.Access, "u-1")
	if err != nil {
		t.Fatalf("owner ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no access entries after failed rotate, got %v", ids)
	}
}

func TestRotateDeletedRefreshFails(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Logout(ctx, pair.RefreshTokenID, "u-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := m.Rotate(ctx, pair.RefreshTokenID, "u-1"); !errors.Is(err, ErrUntrustedToken) {
		t.Fatalf("expected ErrUntrustedToken after logout, got %v", err)
	}
}

func TestRotateOwnerMismatchFails(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Rotate(ctx, pair.RefreshTokenID, "u-2"); !errors.Is(err, ErrUntrustedToken) {
		t.Fatalf("expected ErrUntrustedToken for wrong owner, got %v", err)
	}
}

func TestRotateKeepsRefreshAlive(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	newAccess, err := m.Rotate(ctx, pair.RefreshTokenID, "u-1")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAccess == pair.AccessTokenID {
		t.Fatal("expected a fresh access id")
	}

	if owner, err := reg.Get(ctx, registry.Access, newAccess); err != nil || owner != "u-1" {
		t.Fatalf("new access lookup: owner=%q err=%v", owner, err)
	}
	// Refresh tokens are not consumed by rotation.
	if owner, err := reg.Get(ctx, registry.Refresh, pair.RefreshTokenID); err != nil || owner != "u-1" {
		t.Fatalf("refresh lookup after rotate: owner=%q err=%v", owner, err)
	}
	// The old access entry is left to expire on its own.
	if owner, err := reg.Get(ctx, registry.Access, pair.AccessTokenID); err != nil || owner != "u-1" {
		t.Fatalf("old access lookup after rotate: owner=%q err=%v", owner, err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := m.Logout(ctx, pair.RefreshTokenID, "u-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := reg.Get(ctx, registry.Refresh, pair.RefreshTokenID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected refresh id gone, got %v", err)
	}

	if err := m.Logout(ctx, pair.RefreshTokenID, "u-1"); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestRevokeOnPasswordChange(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	// Two concurrent sessions for the same user.
	sessionA, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue A: %v", err)
	}
	sessionB, err := m.Issue(ctx, "u-1")
	if err != nil {
		t.Fatalf("issue B: %v", err)
	}

	revoked, err := m.RevokeOnPasswordChange(ctx, "u-1", sessionA.AccessTokenID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// B's access token plus both refresh tokens.
	if revoked != 3 {
		t.Fatalf("expected 3 revoked entries, got %d", revoked)
	}

	// The changing session's access token survives until natural expiry.
	if owner, err := reg.Get(ctx, registry.Access, sessionA.AccessTokenID); err != nil || owner != "u-1" {
		t.Fatalf("current access lookup: owner=%q err=%v", owner, err)
	}
	if _, err := reg.Get(ctx, registry.Access, sessionB.AccessTokenID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected other access token revoked, got %v", err)
	}
	for _, id := range []string{sessionA.RefreshTokenID, sessionB.RefreshTokenID} {
		if _, err := reg.Get(ctx, registry.Refresh, id); !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("expected refresh id %s revoked, got %v", id, err)
		}
	}

	// The surviving access token cannot be refreshed into a new session.
	if _, err := m.Rotate(ctx, sessionA.RefreshTokenID, "u-1"); !errors.Is(err, ErrUntrustedToken) {
		t.Fatalf("expected rotate to fail after mass revocation, got %v", err)
	}
}

func TestRevokeOnPasswordChangeNoSessions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	revoked, err := m.RevokeOnPasswordChange(ctx, "nobody", "whatever")
	if err != nil {
		t.Fatalf("revoke with no sessions: %v", err)
	}
	if revoked != 0 {
		t.Fatalf("expected 0 revoked, got %d", revoked)
	}
}
