package auth

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	hash, err := HashToken("token-0123456789abcdef")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if !VerifyToken(hash, "token-0123456789abcdef") {
		t.Fatal("expected token to verify")
	}
	if VerifyToken(hash, "wrong") {
		t.Fatal("expected wrong token to fail")
	}
	if VerifyToken("", "token-0123456789abcdef") {
		t.Fatal("expected empty hash to fail")
	}
}

func TestHashTokenTooShort(t *testing.T) {
	if _, err := HashToken("short"); err == nil {
		t.Fatal("expected error for short token")
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b || ValidateToken(a) != nil {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Fatalf("BearerToken(%q)=%q want %q", tt.header, got, tt.want)
		}
	}
}

func TestVerifier(t *testing.T) {
	hash, err := HashToken("hashed-token-123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name      string
		verifier  *Verifier
		candidate string
		want      bool
	}{
		{name: "open", verifier: NewVerifier("", ""), candidate: "", want: true},
		{name: "nil", verifier: nil, candidate: "", want: true},
		{name: "plain ok", verifier: NewVerifier("plain-token", ""), candidate: "plain-token", want: true},
		{name: "plain bad", verifier: NewVerifier("plain-token", ""), candidate: "nope", want: false},
		{name: "missing", verifier: NewVerifier("plain-token", ""), candidate: "", want: false},
		{name: "hash ok", verifier: NewVerifier("", hash), candidate: "hashed-token-123456", want: true},
		{name: "either", verifier: NewVerifier("plain-token", hash), candidate: "hashed-token-123456", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verifier.Verify(tt.candidate); got != tt.want {
				t.Fatalf("Verify(%q)=%v want %v", tt.candidate, got, tt.want)
			}
		})
	}
}
