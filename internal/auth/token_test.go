package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGenerateToken_Shape(t *testing.T) {
	t.Parallel()

	secret := []byte("server-secret")

	gen, err := GenerateToken("user-1", secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(gen.Plaintext)
	if err != nil {
		t.Fatalf("token should be unpadded base64url: %v", err)
	}

	// 32 random bytes plus a 32-byte HMAC-SHA256 tag
	if len(raw) != TokenRandomLen+sha256.Size {
		t.Errorf("decoded token should be %d bytes, got %d", TokenRandomLen+sha256.Size, len(raw))
	}

	if gen.Prefix != gen.Plaintext[:TokenPrefixLen] {
		t.Errorf("prefix should be the leading %d chars, got %q", TokenPrefixLen, gen.Prefix)
	}
	if len(gen.Prefix) != TokenPrefixLen {
		t.Errorf("prefix should have fixed length %d, got %d", TokenPrefixLen, len(gen.Prefix))
	}
}

func TestGenerateToken_BindsAccount(t *testing.T) {
	t.Parallel()

	secret := []byte("server-secret")

	gen, err := GenerateToken("user-1", secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(gen.Plaintext)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("user-1"))
	want := mac.Sum(nil)

	if !hmac.Equal(raw[TokenRandomLen:], want) {
		t.Error("token tail should be the HMAC tag over the user ID")
	}
}

func TestGenerateToken_Uniqueness(t *testing.T) {
	t.Parallel()

	secret := []byte("server-secret")

	first, err := GenerateToken("user-1", secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	second, err := GenerateToken("user-1", secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if first.Plaintext == second.Plaintext {
		t.Error("two tokens for the same user should never collide")
	}
	if first.Hash == second.Hash {
		t.Error("storage hashes should differ (fresh salt per hash)")
	}
}

func TestGenerateToken_VerifiesAgainstStoredHash(t *testing.T) {
	t.Parallel()

	gen, err := GenerateToken("user-1", []byte("server-secret"))
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	ok, err := VerifyToken(gen.Plaintext, gen.Hash)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if !ok {
		t.Error("freshly minted token should verify against its stored hash")
	}

	// Truncated token must fail
	ok, err = VerifyToken(gen.Plaintext[:len(gen.Plaintext)-1], gen.Hash)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if ok {
		t.Error("truncated token should not verify")
	}
}

func TestPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"long token", "abcdefghijklmnop", "abcdefghijkl"},
		{"exact length", "abcdefghijkl", "abcdefghijkl"},
		{"short token", "abc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Prefix(tt.token); got != tt.want {
				t.Errorf("Prefix(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
