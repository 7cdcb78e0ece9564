package security

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := []byte("pw1")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == string(password) {
		t.Fatalf("Hash returned %q", hash)
	}
	ok, err := h.Verify(hash, password)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify should accept the original password")
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, _ := h.Hash([]byte("secret123"))
	ok, err := h.Verify(hash, []byte("wrong"))
	if err != nil {
		t.Fatalf("mismatch must not be an error, got %v", err)
	}
	if ok {
		t.Fatal("Verify with wrong password should be false")
	}
}

func TestHasher_NonDeterministic(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash([]byte("same"))
	b, _ := h.Hash([]byte("same"))
	if a == b {
		t.Error("two hashes of the same password should differ (salted)")
	}
}

func TestHasher_RejectsEmptyAndLong(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(nil); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Hash(nil) err = %v, want ErrEmptyPassword", err)
	}
	long := bytes.Repeat([]byte("a"), 73)
	if _, err := h.Hash(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(73 bytes) err = %v, want ErrPasswordTooLong", err)
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	ok, err := h.Verify("not-a-bcrypt-hash", []byte("pw"))
	if err == nil || ok {
		t.Errorf("Verify malformed hash = (%v, %v), want (false, error)", ok, err)
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost != bcrypt.DefaultCost {
		t.Errorf("zero cost should select DefaultCost, got %d", h.Cost)
	}
	if h := NewHasher(2); h.Cost != bcrypt.MinCost {
		t.Errorf("cost 2 should clamp to MinCost, got %d", h.Cost)
	}
	if h := NewHasher(40); h.Cost != bcrypt.MaxCost {
		t.Errorf("cost 40 should clamp to MaxCost, got %d", h.Cost)
	}
}
