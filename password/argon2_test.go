package password

import (
	"errors"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	// Small costs to keep the suite fast; still above the validation floors.
	h, err := NewHasher(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher(t)

	hash, salt, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := h.Verify("correct horse battery staple", hash, salt)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = h.Verify("correct horse battery stapler", hash, salt)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected mismatching password to fail verification")
	}
}

func TestHashProducesFreshSalt(t *testing.T) {
	h := newTestHasher(t)

	hash1, salt1, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("first hash: %v", err)
	}
	hash2, salt2, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}

	if salt1 == salt2 {
		t.Fatal("expected distinct salts for repeated hashing")
	}
	if hash1 == hash2 {
		t.Fatal("expected distinct hashes for repeated hashing")
	}

	for _, pair := range [][2]string{{hash1, salt1}, {hash2, salt2}} {
		ok, err := h.Verify("same password", pair[0], pair[1])
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !ok {
			t.Fatal("expected both credential pairs to verify")
		}
	}
}

func TestVerifyMalformedCredential(t *testing.T) {
	h := newTestHasher(t)

	hash, salt, err := h.Hash("a perfectly fine password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cases := []struct {
		name string
		hash string
		salt string
	}{
		{"bad hash encoding", "%%%not-base64%%%", salt},
		{"bad salt encoding", hash, "%%%not-base64%%%"},
		{"hash too short", "c2hvcnQ=", salt},
		{"salt too short", hash, "c2hvcnQ="},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Verify("a perfectly fine password", tc.hash, tc.salt)
			if !errors.Is(err, ErrMalformedCredential) {
				t.Fatalf("expected ErrMalformedCredential, got %v", err)
			}
		})
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	base := Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	weaken := []func(Config) Config{
		func(c Config) Config { c.Memory = 1024; return c },
		func(c Config) Config { c.Time = 0; return c },
		func(c Config) Config { c.Parallelism = 0; return c },
		func(c Config) Config { c.SaltLength = 8; return c },
		func(c Config) Config { c.KeyLength = 8; return c },
	}

	for i, w := range weaken {
		if _, err := NewHasher(w(base)); err == nil {
			t.Fatalf("case %d: expected config rejection", i)
		}
	}

	if _, err := NewHasher(base); err != nil {
		t.Fatalf("expected baseline config to pass: %v", err)
	}
}
