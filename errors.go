package shelfauth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases are never distinguished to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUntrustedToken is returned for a cryptographically valid token
	// whose id is no longer present in the registry.
	ErrUntrustedToken = errors.New("untrusted token")
	// ErrUserExists is returned when registration targets an email that
	// already has an account.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is what a UserProvider returns for a missing account.
	// Login translates it to ErrInvalidCredentials before it reaches the
	// caller; only ChangePassword, where the user is already
	// authenticated, lets it through.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called before
	// Builder.Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrPasswordPolicy is returned when a new password fails the minimum
	// length requirement.
	ErrPasswordPolicy = errors.New("password policy violation")
)
