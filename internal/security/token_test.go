package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func TestSignAndParseSessionToken(t *testing.T) {
	m := NewJWTManager("nanotrace", "nanotrace-api", testSecret)
	raw, expiresAt, err := m.SignSessionToken(42, "sess-1", true, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %s", expiresAt)
	}
	claims, err := m.ParseSessionToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	uid, err := claims.UserID()
	if err != nil || uid != 42 {
		t.Fatalf("user id=%d err=%v", uid, err)
	}
	if claims.ID != "sess-1" || !claims.Admin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseSessionTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("nanotrace", "nanotrace-api", testSecret)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := m.SignSessionToken(1, "sess", false, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	m.now = time.Now
	if _, err := m.ParseSessionToken(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseSessionTokenRejectsForeignTokens(t *testing.T) {
	m := NewJWTManager("nanotrace", "nanotrace-api", testSecret)

	other := NewJWTManager("nanotrace", "nanotrace-api", "zyxwvutsrqponmlkjihgfedcba654321")
	forged, _, err := other.SignSessionToken(1, "sess", true, time.Hour)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := m.ParseSessionToken(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong key, got %v", err)
	}

	wrongAud := NewJWTManager("nanotrace", "someone-else", testSecret)
	raw, _, err := wrongAud.SignSessionToken(1, "sess", false, time.Hour)
	if err != nil {
		t.Fatalf("sign wrong audience: %v", err)
	}
	if _, err := m.ParseSessionToken(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong audience, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "x"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.ParseSessionToken(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg none, got %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("unexpected hash behaviour")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatal("expected hex sha256")
	}
}
