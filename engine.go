package shelfauth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shelfd/shelfauth/jwt"
	"github.com/shelfd/shelfauth/password"
	"github.com/shelfd/shelfauth/registry"
	"github.com/shelfd/shelfauth/session"
)

// Engine is the authentication facade the library-management backend embeds.
// It owns credential verification, session issuance, rotation, and
// revocation; the HTTP layer around it only moves tokens in and out of
// requests. Engines are built once via Builder.Build and are safe for
// concurrent use.
type Engine struct {
	config       Config
	registry     *registry.Registry
	sessions     *session.Manager
	hasher       *password.Hasher
	jwtManager   *jwt.Manager
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics

	// dummyHash/dummySalt are verified against when the email lookup
	// misses, so unknown-user and wrong-password failures cost the same
	// wall time.
	dummyHash string
	dummySalt string
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) ready() bool {
	return e != nil && e.registry != nil && e.sessions != nil &&
		e.hasher != nil && e.jwtManager != nil && e.userProvider != nil
}

// Register creates an account with a freshly salted credential. The
// plaintext never reaches the UserProvider.
func (e *Engine) Register(ctx context.Context, email, plaintext, role string) (UserRecord, error) {
	if !e.ready() {
		return UserRecord{}, ErrEngineNotReady
	}
	if len(plaintext) < PasswordMinLength {
		return UserRecord{}, ErrPasswordPolicy
	}

	hash, salt, err := e.hasher.Hash(plaintext)
	if err != nil {
		return UserRecord{}, err
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
	})
	if err != nil {
		return UserRecord{}, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, AuditEvent{
		EventType: EventRegister,
		UserID:    user.UserID,
		Success:   true,
	})

	return user, nil
}

// Login validates credentials and issues a session. An unknown email and a
// wrong password both surface ErrInvalidCredentials, with a dummy
// verification run on the unknown-email path so the two are
// timing-indistinguishable.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = e.hasher.Verify(plaintext, e.dummyHash, e.dummySalt)
			return nil, e.loginFailure(ctx, "", "unknown_email")
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash, user.Salt)
	if err != nil {
		// Corrupt stored credential. Fatal and logged, never shown to the
		// end user as anything but a server error.
		e.emit(ctx, AuditEvent{
			EventType: EventLoginFailure,
			UserID:    user.UserID,
			Error:     err.Error(),
		})
		return nil, err
	}
	if !ok {
		return nil, e.loginFailure(ctx, user.UserID, "wrong_password")
	}

	pair, err := e.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    user.UserID,
		Success:   true,
	})

	return pair, nil
}

func (e *Engine) loginFailure(ctx context.Context, userID, reason string) error {
	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, AuditEvent{
		EventType: EventLoginFailure,
		UserID:    userID,
		Error:     ErrInvalidCredentials.Error(),
		Metadata:  map[string]string{"reason": reason},
	})
	return ErrInvalidCredentials
}

func (e *Engine) issue(ctx context.Context, user UserRecord) (*TokenPair, error) {
	ids, err := e.sessions.Issue(ctx, user.UserID)
	if err != nil {
		e.storeError(err)
		return nil, err
	}

	accessToken, err := e.jwtManager.SignAccess(user.UserID, user.Role, ids.AccessTokenID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := e.jwtManager.SignRefresh(user.UserID, ids.RefreshTokenID)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricSessionIssued)

	return &TokenPair{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		AccessTokenID:  ids.AccessTokenID,
		RefreshTokenID: ids.RefreshTokenID,
	}, nil
}

// Refresh mints a new signed access token against a presented refresh
// token. The refresh token itself is not rotated; it stays valid until its
// own expiry or logout. Bad signatures and revoked ids are equally
// ErrUntrustedToken.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return "", e.rejectToken(ctx, "", "refresh_signature")
	}

	accessID, err := e.sessions.Rotate(ctx, claims.ID, claims.UID)
	if err != nil {
		if errors.Is(err, session.ErrUntrustedToken) {
			return "", e.rejectToken(ctx, claims.UID, "refresh_revoked")
		}
		e.storeError(err)
		return "", err
	}

	// Role lives in the user record, not in refresh claims; re-read it so a
	// role change takes effect on the next rotation.
	user, err := e.userProvider.GetUserByID(ctx, claims.UID)
	if err != nil {
		return "", err
	}

	accessToken, err := e.jwtManager.SignAccess(user.UserID, user.Role, accessID)
	if err != nil {
		return "", err
	}

	e.metrics.Inc(MetricSessionRotated)
	e.emit(ctx, AuditEvent{
		EventType: EventSessionRotated,
		UserID:    user.UserID,
		Success:   true,
	})

	return accessToken, nil
}

// Logout withdraws trust from the presented refresh token. Idempotent: a
// second logout with the same token is a no-op, though an unparseable
// token is still rejected.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return e.rejectToken(ctx, "", "refresh_signature")
	}

	if err := e.sessions.Logout(ctx, claims.ID, claims.UID); err != nil {
		e.storeError(err)
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emit(ctx, AuditEvent{
		EventType: EventLogout,
		UserID:    claims.UID,
		Success:   true,
	})

	return nil
}

// ChangePassword replaces the caller's credential and revokes every other
// session. The access token behind currentAccessID stays trusted until its
// natural expiry so the change-password response itself still validates;
// every refresh token is dropped, forcing all sessions to re-authenticate
// once their access tokens run out.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentAccessID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if len(newPassword) < PasswordMinLength {
		return ErrPasswordPolicy
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(currentPassword, user.PasswordHash, user.Salt)
	if err != nil {
		return err
	}
	if !ok {
		return e.loginFailure(ctx, userID, "wrong_current_password")
	}

	hash, salt, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.userProvider.UpdateCredential(ctx, userID, hash, salt); err != nil {
		return err
	}

	revoked, err := e.sessions.RevokeOnPasswordChange(ctx, userID, currentAccessID)
	if err != nil {
		e.storeError(err)
		return err
	}

	e.metrics.Inc(MetricPasswordChanged)
	e.metrics.Add(MetricTokensRevoked, uint64(revoked))
	e.emit(ctx, AuditEvent{
		EventType: EventPasswordChanged,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"revoked": strconv.Itoa(revoked)},
	})

	return nil
}

// Validate checks an inbound access token: signature and expiry first, then
// presence in the registry. Cryptographic validity is necessary but not
// sufficient; a revoked id fails here no matter how fresh the signature is.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, e.rejectToken(ctx, "", "access_signature")
	}

	owner, err := e.registry.Get(ctx, registry.Access, claims.ID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, e.rejectToken(ctx, claims.UID, "access_revoked")
		}
		e.storeError(err)
		return nil, err
	}
	if owner != claims.UID {
		return nil, e.rejectToken(ctx, claims.UID, "owner_mismatch")
	}

	return &AuthResult{
		UserID:        claims.UID,
		Role:          claims.Role,
		AccessTokenID: claims.ID,
	}, nil
}

func (e *Engine) rejectToken(ctx context.Context, userID, reason string) error {
	e.metrics.Inc(MetricTokenRejected)
	e.emit(ctx, AuditEvent{
		EventType: EventTokenRejected,
		UserID:    userID,
		Error:     ErrUntrustedToken.Error(),
		Metadata:  map[string]string{"reason": reason},
	})
	return ErrUntrustedToken
}

func (e *Engine) storeError(err error) {
	if errors.Is(err, registry.ErrUnavailable) {
		e.metrics.Inc(MetricStoreError)
	}
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = time.Now()
	event.IP = clientIPFromContext(ctx)
	e.audit.Emit(ctx, event)
}
