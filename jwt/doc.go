// Package jwt is the signed-token codec for shelfauth bearer tokens.
//
// A signature proves where a token came from and bounds its lifetime; it
// says nothing about revocation. The token id carried in the jti claim must
// still resolve in the registry before the token is trusted.
package jwt
