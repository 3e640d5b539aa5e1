// Package shelfauth is the credential and session-token core of the Shelf
// library-management backend.
//
// It owns password hashing (argon2id with per-user salts), issuance of
// short-lived access tokens and longer-lived refresh tokens, and a
// revocable Redis-backed registry of trusted token ids. A signed token is
// only half the story: its id must still be present in the registry, so
// logout and password-change mass revocation take effect on the very next
// request, on every server instance.
//
// The package is a library, not a service. The backend's HTTP layer
// implements [UserProvider] over its user table, builds an [Engine]
// through [Builder], and calls Login, Refresh, Logout, ChangePassword, and
// Validate from its handlers. CRUD resources, routing, and the admin
// dashboard stay outside.
//
// Engine methods are safe for concurrent use after [Builder.Build].
package shelfauth
