package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h == "hunter22" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword("hunter22", h) {
		t.Error("expected password to match")
	}
	if CheckPassword("hunter23", h) {
		t.Error("expected wrong password to fail")
	}
	if CheckPassword("hunter22", "not-a-hash") {
		t.Error("expected malformed hash to fail")
	}
}
