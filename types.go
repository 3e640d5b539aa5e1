package shelfauth

import "context"

// UserRecord is the account shape the engine needs from the host
// application's user store: identity, the stored credential pair, and the
// role claim embedded in access tokens.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Salt         string
	Role         string
}

// CreateUserInput is passed to UserProvider.CreateUser during registration.
// The credential pair is already hashed; providers never see plaintext.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Salt         string
	Role         string
}

// UserProvider is the interface the host application implements to connect
// the engine to its user database. GetUserByEmail returning ErrUserNotFound
// is an expected negative outcome, surfaced to callers of Login as
// ErrInvalidCredentials. CreateUser must fail with ErrUserExists when the
// email is taken.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateCredential(ctx context.Context, userID, passwordHash, salt string) error
}

// TokenPair is returned by Engine.Login: both tokens signed and ready to
// hand to the client, plus the registry ids backing them for callers that
// track sessions.
type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	AccessTokenID  string
	RefreshTokenID string
}

// AuthResult is returned by Engine.Validate for a trusted access token.
type AuthResult struct {
	UserID        string
	Role          string
	AccessTokenID string
}
