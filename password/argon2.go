package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedCredential is returned when a stored hash or salt cannot be
// decoded. It indicates data corruption in the user store, never a wrong
// password.
var ErrMalformedCredential = errors.New("malformed credential record")

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Config holds the argon2id cost parameters and output sizes. Instances are
// validated once in NewHasher and treated as immutable afterwards.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the cost parameters used when the host application
// does not override them.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies password credentials using argon2id. It is
// stateless and safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg against the minimum cost floors and returns a
// ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Hasher{config: cfg}, nil
}

// Hash derives a credential pair from plaintext. Every call draws a fresh
// random salt, so two hashes of the same password never match each other.
// Both return values are standard-base64 encoded for storage.
func (h *Hasher) Hash(plaintext string) (hash string, salt string, err error) {
	// Raw password bytes exactly as provided, no Unicode normalization.
	rawSalt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, rawSalt); err != nil {
		return "", "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		rawSalt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return base64.StdEncoding.EncodeToString(key),
		base64.StdEncoding.EncodeToString(rawSalt),
		nil
}

// Verify recomputes the derivation with the stored salt and compares the
// result to the stored hash in constant time. A wrong password yields
// (false, nil); an error is returned only when the stored pair itself is
// unreadable.
func (h *Hasher) Verify(plaintext, hash, salt string) (bool, error) {
	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if len(rawHash) < int(minKeyLength) {
		return false, fmt.Errorf("%w: hash too short", ErrMalformedCredential)
	}

	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if len(rawSalt) < int(minSaltLength) {
		return false, fmt.Errorf("%w: salt too short", ErrMalformedCredential)
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		rawSalt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		uint32(len(rawHash)),
	)

	return subtle.ConstantTimeCompare(computed, rawHash) == 1, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
