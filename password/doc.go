// Package password implements credential hashing for the shelfauth core.
//
// Credentials are stored as a (hash, salt) pair. The hash is derived with
// argon2id using a per-credential random salt; verification recomputes the
// derivation and compares in constant time. A wrong password is an expected
// negative outcome (false, nil); only an unreadable stored pair is an error.
package password
