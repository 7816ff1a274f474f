package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minTokenLength   = 16
	generatedTokenSz = 32
	bearerPrefix     = "bearer "
)

// ValidateToken checks minimal API token requirements.
func ValidateToken(token string) error {
	if len(strings.TrimSpace(token)) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	return nil
}

// HashToken hashes an API token for storage in the config file.
func HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if err := ValidateToken(token); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyToken verifies a plaintext token against a bcrypt hash.
func VerifyToken(tokenHash, candidate string) bool {
	if strings.TrimSpace(tokenHash) == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(candidate)) == nil
}

// GenerateToken returns a random URL-safe token.
func GenerateToken() (string, error) {
	buf := make([]byte, generatedTokenSz)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Verifier accepts a request token matching either a plain token or a bcrypt
// hash. A verifier with neither configured accepts everything.
type Verifier struct {
	plain string
	hash  string
}

// NewVerifier creates a Verifier.
func NewVerifier(plainToken, tokenHash string) *Verifier {
	return &Verifier{plain: strings.TrimSpace(plainToken), hash: strings.TrimSpace(tokenHash)}
}

// Required reports whether requests must carry a token.
func (v *Verifier) Required() bool {
	return v != nil && (v.plain != "" || v.hash != "")
}

// Verify checks a candidate token.
func (v *Verifier) Verify(candidate string) bool {
	if !v.Required() {
		return true
	}
	if candidate == "" {
		return false
	}
	if v.plain != "" && subtle.ConstantTimeCompare([]byte(v.plain), []byte(candidate)) == 1 {
		return true
	}
	return v.hash != "" && VerifyToken(v.hash, candidate)
}
