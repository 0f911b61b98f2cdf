package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2$sha256$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Fatal("expected non-matching password to fail")
	}
}

func TestHashPasswordUsesRandomSalt(t *testing.T) {
	first, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "missing fields", hash: "pbkdf2$sha256$120000"},
		{name: "unknown algorithm", hash: "scrypt$sha256$120000$c2FsdA$a2V5"},
		{name: "unknown digest", hash: "pbkdf2$md5$120000$c2FsdA$a2V5"},
		{name: "bad iteration count", hash: "pbkdf2$sha256$zero$c2FsdA$a2V5"},
		{name: "negative iterations", hash: "pbkdf2$sha256$-1$c2FsdA$a2V5"},
		{name: "bad salt encoding", hash: "pbkdf2$sha256$120000$!!!$a2V5"},
		{name: "bad key encoding", hash: "pbkdf2$sha256$120000$c2FsdA$!!!"},
		{name: "plain text", hash: "hunter2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyPassword(tc.hash, "hunter2") {
				t.Fatal("expected malformed hash to fail verification")
			}
		})
	}
}
