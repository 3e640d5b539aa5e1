package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shelfd/shelfauth/registry"
)

// ErrUntrustedToken is returned when a token id is absent from the registry:
// expired, revoked, or never issued. The three cases are deliberately
// indistinguishable.
var ErrUntrustedToken = errors.New("untrusted token")

// Pair is the registry-backed id pair minted for a new session. The ids are
// handed to the boundary layer for embedding in signed tokens; they carry
// no meaning beyond their registry entries.
type Pair struct {
	AccessTokenID  string
	RefreshTokenID string
}

// Manager issues, rotates, and revokes session token ids against the
// registry. It holds no per-session state of its own and is safe for
// concurrent use.
type Manager struct {
	registry   *registry.Registry
	accessTTL  time.Duration
	refreshTTL time.Duration

	// newTokenID is swappable in tests. The default is a v4 UUID, which
	// carries 122 bits of entropy.
	newTokenID func() string
}

// NewManager validates the TTL policy and returns a Manager bound to reg.
func NewManager(reg *registry.Registry, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if reg == nil {
		return nil, errors.New("nil registry")
	}
	if accessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}

	return &Manager{
		registry:   reg,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		newTokenID: uuid.NewString,
	}, nil
}

// Issue mints a fresh access/refresh id pair for ownerID and registers both
// in one registry transaction. Multiple concurrent sessions for one owner
// are linked only through the owner id; the pair itself stores no
// parent/child relation.
func (m *Manager) Issue(ctx context.Context, ownerID string) (Pair, error) {
	pair := Pair{
		AccessTokenID:  m.newTokenID(),
		RefreshTokenID: m.newTokenID(),
	}

	if err := m.registry.PutPair(ctx, ownerID, pair.RefreshTokenID, pair.AccessTokenID, m.refreshTTL, m.accessTTL); err != nil {
		return Pair{}, err
	}

	return pair, nil
}

// Rotate mints a new access id against an existing refresh id. The caller
// has already verified the presented token cryptographically; Rotate checks
// that the refresh id is still trusted and owned by ownerID. The refresh
// token is not consumed — it stays valid until its own expiry or an
// explicit logout. The previous access entry is left to expire naturally.
func (m *Manager) Rotate(ctx context.Context, refreshTokenID, ownerID string) (string, error) {
	owner, err := m.registry.Get(ctx, registry.Refresh, refreshTokenID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return "", ErrUntrustedToken
		}
		return "", err
	}
	if owner != ownerID {
		return "", ErrUntrustedToken
	}

	accessID := m.newTokenID()
	if err := m.registry.Put(ctx, registry.Access, accessID, ownerID, m.accessTTL); err != nil {
		return "", err
	}

	return accessID, nil
}

// Logout withdraws trust from one refresh id. Idempotent; logging out an
// already-absent id is not an error.
func (m *Manager) Logout(ctx context.Context, refreshTokenID, ownerID string) error {
	return m.registry.Delete(ctx, registry.Refresh, refreshTokenID, ownerID)
}

// RevokeOnPasswordChange drops every token the owner holds except the
// access id of the session that performed the change. That session keeps
// working until its access token expires; with all refresh ids gone, every
// session (the current one included) must then re-authenticate.
func (m *Manager) RevokeOnPasswordChange(ctx context.Context, ownerID, currentAccessID string) (int, error) {
	revokedAccess, err := m.registry.DeleteAllForOwner(ctx, registry.Access, ownerID, currentAccessID)
	if err != nil {
		return 0, err
	}

	revokedRefresh, err := m.registry.DeleteAllForOwner(ctx, registry.Refresh, ownerID)
	if err != nil {
		return revokedAccess, err
	}

	return revokedAccess + revokedRefresh, nil
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }
