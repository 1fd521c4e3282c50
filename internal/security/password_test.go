package security

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Stronger#Pass123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if strings.Contains(hash, "Stronger#Pass123") {
		t.Fatal("hash must not contain plaintext")
	}
	ok, err := VerifyPassword(hash, "Stronger#Pass123")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification success")
	}
	ok, err = VerifyPassword(hash, "wrong-pass")
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("expected password verification failure")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	a, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	cheap := PasswordHasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8}
	hash, err := cheap.Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := DefaultPasswordHasher().Verify(hash, "pw")
	if err != nil || !ok {
		t.Fatalf("expected verify with default hasher to honour embedded params, ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$m=x$c2FsdA$a2V5"} {
		if _, err := VerifyPassword(encoded, "pw"); !errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("expected ErrInvalidPasswordHash for %q, got %v", encoded, err)
		}
	}
}
