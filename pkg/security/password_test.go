package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/resinart/storefront-api/pkg/config"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{BcryptCost: bcrypt.MinCost}

	hash, err := HashPassword("resin-rocks", cfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}

	ok, err := VerifyPassword("resin-rocks", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("abc", config.PasswordConfig{}); err == nil {
		t.Fatalf("expected short password error")
	}
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hash, err := HashPassword("resin-rocks", config.PasswordConfig{BcryptCost: 99})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d err=%v", cost, err)
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := VerifyPassword("pw", "nope"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	raw, hashed, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(raw) != 64 || len(hashed) != 64 {
		t.Fatalf("unexpected lengths raw=%d hashed=%d", len(raw), len(hashed))
	}
	if raw == hashed {
		t.Fatalf("raw token must not equal its hash")
	}
	if HashResetToken(raw) != hashed {
		t.Fatalf("hash should be deterministic")
	}

	other, _, _ := GenerateResetToken()
	if other == raw {
		t.Fatalf("tokens should be random")
	}
}
