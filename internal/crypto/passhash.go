// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. HMAC-SHA1 with a high iteration count and a 128-bit key,
// matching what the credential store already holds.
const (
	hashIterations = 65536
	hashKeyLen     = 16
	SaltLen        = 16
)

// RandSalt returns a fresh cryptographically secure salt.
func RandSalt() ([]byte, error) {
	b := make([]byte, SaltLen)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns the PBKDF2 digest of password using the provided salt.
func HashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLen, sha1.New)
}

// VerifyPassword verifies password against the expected digest in constant time.
func VerifyPassword(password string, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
