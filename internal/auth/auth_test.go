package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt format", hash)
	}

	v := NewVerifier(hash)
	if !v.Enabled() {
		t.Error("Enabled = false, want true")
	}
	if !v.Verify(token) {
		t.Error("Verify(correct token) = false")
	}
	if v.Verify(token + "x") {
		t.Error("Verify(wrong token) = true")
	}
	if v.Verify("") {
		t.Error("Verify(empty) = true")
	}
}

func TestVerify_LongToken(t *testing.T) {
	long := strings.Repeat("a", 100)
	hash, err := HashToken(long)
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	v := NewVerifier(hash)
	// Differs only after bcrypt's 72-byte limit.
	if v.Verify(strings.Repeat("a", 99) + "b") {
		t.Error("tokens differing past 72 bytes must not verify")
	}
	if !v.Verify(long) {
		t.Error("Verify(long token) = false")
	}
}

func TestVerifier_EmptyHashRejects(t *testing.T) {
	v := NewVerifier("")
	if v.Enabled() {
		t.Error("Enabled = true, want false")
	}
	if v.Verify("anything") {
		t.Error("Verify with no hash = true")
	}
}

func TestVerifier_SetHash(t *testing.T) {
	first, _ := HashToken("first")
	second, _ := HashToken("second")
	v := NewVerifier(first)
	v.SetHash(second)
	if v.Verify("first") {
		t.Error("old token still verifies after SetHash")
	}
	if !v.Verify("second") {
		t.Error("new token does not verify after SetHash")
	}
}

func TestHashToken_Empty(t *testing.T) {
	if _, err := HashToken(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("HashToken(\"\") error = %v, want ErrNoToken", err)
	}
}
