// Package session coordinates the lifecycle of token-id pairs: issuance on
// login, access rotation against a trusted refresh id, single-session
// logout, and password-change mass revocation.
//
// Per-id lifecycle: issued, trusted while present in the registry, then
// expired or revoked, then absent. Ids are never reused; an absent id never
// becomes trusted again.
package session
