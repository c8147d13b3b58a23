package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenFingerprint returns a stable sha256 fingerprint of a credential, safe
// to put in logs and audit entries.
func TokenFingerprint(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// IsBcryptHash reports whether s looks like a bcrypt hash. Operators may
// configure either the plaintext API token or its bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// VerifyTokenHash compares a bcrypt hash with a presented token.
func VerifyTokenHash(hash, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}
