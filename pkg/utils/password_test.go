package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatal("expected the original password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Fatal("expected a wrong password to fail verification")
	}
	if CheckPassword("correct horse battery staple", "not-a-bcrypt-hash") {
		t.Fatal("expected verification against garbage to fail")
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	second, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}
